package models

import "strings"

// Offer is a normalized, filtered listing for one product.
type Offer struct {
	ID          string  `json:"itemId"`
	Title       string  `json:"title"`
	PriceEUR    float64 `json:"price_eur"`
	ShippingEUR float64 `json:"shipping_eur"`
	TotalEUR    float64 `json:"total_eur"`
	Condition   string  `json:"condition"`
	Shop        string  `json:"shop,omitempty"`
	URL         string  `json:"url"`
	ImageURL    string  `json:"image_url,omitempty"`
	Description string  `json:"description,omitempty"`
	SearchURL   string  `json:"search_url,omitempty"`
}

// RelevanceText is the text fed to the relevance model.
func (o Offer) RelevanceText() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{o.Title, o.Condition, o.Shop, o.Description} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// LabelSet maps offer ids to a reviewer's relevance judgment.
type LabelSet map[string]bool

// Excludes reports whether the reviewer marked id as not relevant.
func (l LabelSet) Excludes(id string) bool {
	v, ok := l[id]
	return ok && !v
}
