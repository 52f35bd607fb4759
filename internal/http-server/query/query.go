package query

import (
	"fmt"
	"net/http"
	"strconv"
)

func Int(r *http.Request, key string) (val int, present bool, err error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%s must be integer", key)
	}
	return n, true, nil
}

// IntRange is Int with a default and inclusive bounds.
func IntRange(r *http.Request, key string, def, lo, hi int) (int, error) {
	v, present, err := Int(r, key)
	if err != nil {
		return 0, err
	}
	if !present {
		return def, nil
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %d and %d", key, lo, hi)
	}
	return v, nil
}
