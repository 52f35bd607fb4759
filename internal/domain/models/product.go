package models

import "strings"

type PriceFilter struct {
	Min float64 `yaml:"min" json:"min,omitempty"`
	Max float64 `yaml:"max" json:"max,omitempty"`
}

// Product is a board game definition authored under content/games.
type Product struct {
	Slug  string `yaml:"slug" json:"slug"`
	Title string `yaml:"title" json:"title"`

	SearchTerms []string `yaml:"search_terms" json:"search_terms,omitempty"`
	// older content files use search_queries
	SearchQueries []string `yaml:"search_queries" json:"-"`
	AltTitles     []string `yaml:"alt_titles" json:"alt_titles,omitempty"`
	Synonyms      []string `yaml:"synonyms" json:"synonyms,omitempty"`

	CategoryID    string              `yaml:"ebay_category_id" json:"ebay_category_id,omitempty"`
	PriceFilter   PriceFilter         `yaml:"price_filter" json:"price_filter"`
	AspectFilters map[string][]string `yaml:"aspect_filters" json:"aspect_filters,omitempty"`

	ExcludeKeywords []string `yaml:"exclude_keywords" json:"exclude_keywords,omitempty"`
	IncludeKeywords []string `yaml:"include_keywords" json:"include_keywords,omitempty"`

	ConditionIDs      []string `yaml:"condition_ids" json:"condition_ids,omitempty"`
	SellerAccountType string   `yaml:"seller_account_type" json:"seller_account_type,omitempty"`
}

// Terms returns the explicit search terms, search_terms first.
func (p Product) Terms() []string {
	out := make([]string, 0, len(p.SearchTerms)+len(p.SearchQueries))
	for _, s := range append(append([]string{}, p.SearchTerms...), p.SearchQueries...) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
