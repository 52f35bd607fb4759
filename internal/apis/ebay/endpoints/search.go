package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"preisradar/internal/apis/ebay/responses"
)

// SearchParams is one item_summary/search call.
type SearchParams struct {
	Query        string
	Filter       string
	AspectFilter string
	CategoryIDs  string
	Sort         string
	Limit        int
	Offset       int

	Token       string
	Marketplace string
	EndUserCtx  string
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	v.Set("q", p.Query)
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	if p.Filter != "" {
		v.Set("filter", p.Filter)
	}
	if p.CategoryIDs != "" {
		v.Set("category_ids", p.CategoryIDs)
	}
	if p.AspectFilter != "" {
		v.Set("aspect_filter", p.AspectFilter)
	}
	return v
}

// SearchURL is the full GET url for p; exposed for logging and tests.
func (c *Client) SearchURL(p SearchParams) string {
	return c.BrowseURL + "/item_summary/search?" + p.values().Encode()
}

func (c *Client) Search(ctx context.Context, p SearchParams) (responses.SearchPage, error) {
	if p.Query == "" {
		return responses.SearchPage{}, fmt.Errorf("Search: empty query")
	}

	req, err := c.newReq(ctx, http.MethodGet, c.SearchURL(p), nil)
	if err != nil {
		return responses.SearchPage{}, err
	}
	req.Header.Set("Authorization", "Bearer "+p.Token)
	if p.Marketplace != "" {
		req.Header.Set("X-EBAY-C-MARKETPLACE-ID", p.Marketplace)
	}
	if p.EndUserCtx != "" {
		req.Header.Set("X-EBAY-C-ENDUSERCTX", p.EndUserCtx)
	}

	resp, err := c.Doer.Do(req)
	if err != nil {
		return responses.SearchPage{}, err
	}

	b, err := readLimited(resp, 4*1024*1024)
	if err != nil {
		return responses.SearchPage{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return responses.SearchPage{}, ParseAPIError(resp.StatusCode, b)
	}

	var raw map[string]any
	if err := decodeJSON(b, &raw); err != nil {
		return responses.SearchPage{}, fmt.Errorf("Search: bad json body=%s", string(b[:min(len(b), 1024)]))
	}

	page := responses.SearchPage{}
	if n, ok := raw["total"].(json.Number); ok {
		if v, err := n.Int64(); err == nil {
			page.Total = int(v)
		}
	}

	arr, _ := raw["itemSummaries"].([]any)
	page.Items = make([]responses.Item, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			page.Items = append(page.Items, responses.Item{Raw: m})
		}
	}
	return page, nil
}
