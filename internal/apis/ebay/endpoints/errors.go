package endpoints

import (
	"encoding/json"
	"fmt"
	"strings"
)

type APIError struct {
	Status  int
	Code    any
	Message string
	Body    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	return fmt.Sprintf("api error: status=%d code=%v message=%s", e.Status, e.Code, msg)
}

// ParseAPIError understands both the Browse API envelope
// ({"errors":[{"errorId":..,"message":..}]}) and the OAuth one
// ({"error":..,"error_description":..}).
func ParseAPIError(status int, body []byte) *APIError {
	body = []byte(strings.TrimSpace(string(body)))
	out := &APIError{Status: status, Body: string(body[:min(len(body), 4096)])}

	var m map[string]any
	if json.Unmarshal(body, &m) != nil {
		return out
	}

	if errs, ok := m["errors"].([]any); ok && len(errs) > 0 {
		if first, ok := errs[0].(map[string]any); ok {
			if v, ok := first["errorId"]; ok {
				out.Code = v
			}
			if v, ok := first["message"].(string); ok {
				out.Message = v
			}
		}
		return out
	}

	if v, ok := m["error"]; ok {
		out.Code = v
	}
	if v, ok := m["error_description"].(string); ok {
		out.Message = v
	}
	return out
}
