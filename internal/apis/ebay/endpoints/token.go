package endpoints

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"preisradar/internal/apis/ebay/responses"
)

// ExchangeToken runs the client-credentials grant against TokenURL.
func (c *Client) ExchangeToken(ctx context.Context, clientID, clientSecret, scope string) (responses.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", scope)

	req, err := c.newReq(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return responses.Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := c.Doer.Do(req)
	if err != nil {
		return responses.Token{}, fmt.Errorf("token request: %w", err)
	}

	b, err := readLimited(resp, 64*1024)
	if err != nil {
		return responses.Token{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return responses.Token{}, ParseAPIError(resp.StatusCode, b)
	}

	var out responses.Token
	if err := decodeJSON(b, &out); err != nil {
		return responses.Token{}, fmt.Errorf("token: bad json: %w", err)
	}
	if out.AccessToken == "" {
		return responses.Token{}, fmt.Errorf("token: empty access_token")
	}
	out.ExpiresAt = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second).UTC()
	return out, nil
}
