package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	Doer      Doer
	BrowseURL string
	TokenURL  string
}

func New(doer Doer, browseURL, tokenURL string) *Client {
	return &Client{
		Doer:      doer,
		BrowseURL: strings.TrimRight(browseURL, "/"),
		TokenURL:  tokenURL,
	}
}

func (c *Client) newReq(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("endpoint url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func readLimited(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// decodeJSON keeps numbers as json.Number so price strings and numbers
// reach the mapper unchanged.
func decodeJSON[T any](b []byte, out *T) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(out)
}
