// Package filter decides which search results become offers for a product.
//
// Items are normalized first, then checked against an ordered list of rules;
// the first rule that rejects an item records its reason. Manual labels and
// the optional relevance model run after the rules, deduplication runs last.
package filter

import (
	"strings"
	"unicode"

	"preisradar/internal/apis/ebay"
	"preisradar/internal/apis/ebay/mapper"
	"preisradar/internal/domain/models"
	"preisradar/internal/relevance"
)

type Reason string

const (
	ReasonUnresolved Reason = "unresolved"
	ReasonCategory   Reason = "category"
	ReasonCondition  Reason = "condition"
	ReasonSeller     Reason = "seller"
	ReasonKeyword    Reason = "keyword"
	ReasonInclude    Reason = "include"
	ReasonLocation   Reason = "location"
	ReasonPrice      Reason = "price"
	ReasonLabel      Reason = "label"
	ReasonModel      Reason = "model"
	ReasonDuplicate  Reason = "duplicate"
)

// Stats counts dropped items per reason.
type Stats map[Reason]int

func (s Stats) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// Policy is the process-wide filter configuration.
type Policy struct {
	ExcludeTerms      []string
	ConditionIDs      []string
	NewMarkers        []string
	SellerAccountType string
	LocationCountries []string
	DefaultCategoryID string
	MinPrice          float64
	ModelThreshold    float64
}

type Pipeline struct {
	policy    Policy
	currency  string
	affiliate ebay.Affiliate
}

func New(policy Policy, currency string, affiliate ebay.Affiliate) *Pipeline {
	policy.ExcludeTerms = lowerAll(policy.ExcludeTerms)
	policy.NewMarkers = lowerAll(policy.NewMarkers)
	policy.SellerAccountType = strings.ToUpper(strings.TrimSpace(policy.SellerAccountType))
	if policy.ModelThreshold <= 0 {
		policy.ModelThreshold = 0.5
	}
	return &Pipeline{policy: policy, currency: currency, affiliate: affiliate}
}

func (p *Pipeline) Policy() Policy { return p.policy }

type Request struct {
	Product models.Product
	Items   []ebay.Item
	Labels  models.LabelSet
	// Scorer is nil when no model artifact exists.
	Scorer    relevance.Scorer
	SearchURL string
}

type Result struct {
	Offers []models.Offer
	Stats  Stats
}

// candidate is one normalized item under evaluation.
type candidate struct {
	offer models.Offer
	attrs mapper.ItemAttributes
	title string
}

type rule struct {
	reason Reason
	drop   func(c candidate) bool
}

// Filter keeps search result order; ranking is the caller's job.
func (p *Pipeline) Filter(req Request) Result {
	res := Result{Offers: make([]models.Offer, 0, len(req.Items)), Stats: Stats{}}
	rules := p.rules(req.Product)
	opts := mapper.Options{
		Currency:  p.currency,
		Affiliate: p.affiliate,
		SearchURL: req.SearchURL,
		Slug:      req.Product.Slug,
	}
	seen := make(map[string]struct{}, len(req.Items))

	for _, it := range req.Items {
		o, ok := mapper.FromItem(it, opts)
		if !ok {
			res.Stats[ReasonUnresolved]++
			continue
		}
		c := candidate{offer: o, attrs: mapper.Attributes(it), title: strings.ToLower(o.Title)}

		if r, dropped := firstDrop(rules, c); dropped {
			res.Stats[r]++
			continue
		}
		if req.Labels.Excludes(o.ID) {
			res.Stats[ReasonLabel]++
			continue
		}
		if req.Scorer != nil && req.Scorer.Score(o.RelevanceText()) < p.policy.ModelThreshold {
			res.Stats[ReasonModel]++
			continue
		}
		if _, dup := seen[o.ID]; dup {
			res.Stats[ReasonDuplicate]++
			continue
		}
		seen[o.ID] = struct{}{}
		res.Offers = append(res.Offers, o)
	}
	return res
}

func firstDrop(rules []rule, c candidate) (Reason, bool) {
	for _, r := range rules {
		if r.drop(c) {
			return r.reason, true
		}
	}
	return "", false
}

func (p *Pipeline) rules(prod models.Product) []rule {
	category := strings.TrimSpace(prod.CategoryID)
	if category == "" {
		category = p.policy.DefaultCategoryID
	}

	conditionIDs := p.policy.ConditionIDs
	if len(prod.ConditionIDs) > 0 {
		conditionIDs = prod.ConditionIDs
	}

	sellerType := p.policy.SellerAccountType
	if s := strings.ToUpper(strings.TrimSpace(prod.SellerAccountType)); s != "" {
		sellerType = s
	}

	exclude := append(append([]string{}, p.policy.ExcludeTerms...), lowerAll(prod.ExcludeKeywords)...)
	include := lowerAll(prod.IncludeKeywords)

	return []rule{
		{ReasonCategory, func(c candidate) bool {
			// no reported category: the search request was already scoped
			return category != "" && len(c.attrs.Categories) > 0 && !contains(c.attrs.Categories, category)
		}},
		{ReasonCondition, func(c candidate) bool {
			// a reported id is authoritative; the text only speaks when it is missing
			if c.attrs.ConditionID != "" {
				return !contains(conditionIDs, c.attrs.ConditionID)
			}
			return !isNewCondition(c.attrs.Condition, p.policy.NewMarkers)
		}},
		{ReasonSeller, func(c candidate) bool {
			return sellerType != "" && c.attrs.SellerType != sellerType
		}},
		{ReasonKeyword, func(c candidate) bool {
			return containsAny(c.title, exclude)
		}},
		{ReasonInclude, func(c candidate) bool {
			return len(include) > 0 && !containsAny(c.title, include)
		}},
		{ReasonLocation, func(c candidate) bool {
			return len(p.policy.LocationCountries) > 0 && c.attrs.Country != "" &&
				!contains(p.policy.LocationCountries, c.attrs.Country)
		}},
		{ReasonPrice, func(c candidate) bool {
			price := c.offer.PriceEUR
			if p.policy.MinPrice > 0 && price < p.policy.MinPrice {
				return true
			}
			if prod.PriceFilter.Min > 0 && price < prod.PriceFilter.Min {
				return true
			}
			return prod.PriceFilter.Max > 0 && price > prod.PriceFilter.Max
		}},
	}
}

// likeNew phrases describe used items even though they carry a new marker.
var likeNew = []string{"wie neu", "like new", "neuwertig", "fast neu", "as new"}

// isNewCondition matches markers as whole words in the condition text.
func isNewCondition(text string, markers []string) bool {
	text = strings.ToLower(text)
	if text == "" || containsAny(text, likeNew) {
		return false
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if contains(markers, w) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func containsAny(text string, needles []string) bool {
	if text == "" {
		return false
	}
	for _, n := range needles {
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
