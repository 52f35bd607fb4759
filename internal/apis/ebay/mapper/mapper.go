package mapper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"preisradar/internal/apis/ebay"
	"preisradar/internal/domain/models"
)

const MaxTitleLen = 140

type Options struct {
	Currency  string
	Affiliate ebay.Affiliate
	// SearchURL is stored on every offer as its origin.
	SearchURL string
	Slug      string
}

// FromItem normalizes one search result. ok=false means the item has no
// id, no price in the configured currency or no usable url.
func FromItem(it ebay.Item, opts Options) (models.Offer, bool) {
	if it.Raw == nil {
		return models.Offer{}, false
	}

	id := extractID(it)
	if id == "" {
		return models.Offer{}, false
	}

	price, ok := ExtractPrice(it, opts.Currency)
	if !ok || !price.IsPositive() {
		return models.Offer{}, false
	}

	u := extractURL(it)
	if u == "" {
		return models.Offer{}, false
	}

	shipping := ExtractShipping(it, opts.Currency)
	attrs := Attributes(it)

	return models.Offer{
		ID:          id,
		Title:       truncate(extractTitle(it), MaxTitleLen),
		PriceEUR:    price.Round(2).InexactFloat64(),
		ShippingEUR: shipping.Round(2).InexactFloat64(),
		TotalEUR:    price.Add(shipping).Round(2).InexactFloat64(),
		Condition:   attrs.Condition,
		Shop:        attrs.Seller,
		URL:         opts.Affiliate.Tag(u, opts.Slug),
		ImageURL:    UpscaleImage(extractImage(it)),
		Description: strings.TrimSpace(pickString(it.Raw, "shortDescription", "subtitle")),
		SearchURL:   opts.SearchURL,
	}, true
}

// amountExtractor pulls a currency-matched amount out of one field shape.
type amountExtractor func(raw map[string]any, currency string) (decimal.Decimal, bool)

// priceChain is tried in order; the first match wins.
var priceChain = []amountExtractor{
	fixedPrice,
	rangeMinPrice,
	currentBid,
}

func ExtractPrice(it ebay.Item, currency string) (decimal.Decimal, bool) {
	for _, ex := range priceChain {
		if v, ok := ex(it.Raw, currency); ok {
			return v, true
		}
	}
	return decimal.Zero, false
}

func fixedPrice(raw map[string]any, currency string) (decimal.Decimal, bool) {
	return amountIn(raw["price"], currency)
}

func rangeMinPrice(raw map[string]any, currency string) (decimal.Decimal, bool) {
	pr, ok := raw["priceRange"].(map[string]any)
	if !ok {
		return decimal.Zero, false
	}
	return amountIn(pr["minPrice"], currency)
}

func currentBid(raw map[string]any, currency string) (decimal.Decimal, bool) {
	return amountIn(raw["currentBidPrice"], currency)
}

// ExtractShipping returns the first currency-matched shipping cost, else zero.
func ExtractShipping(it ebay.Item, currency string) decimal.Decimal {
	opts, ok := it.Raw["shippingOptions"].([]any)
	if !ok {
		return decimal.Zero
	}
	for _, o := range opts {
		m, ok := o.(map[string]any)
		if !ok {
			continue
		}
		if v, ok := amountIn(m["shippingCost"], currency); ok && !v.IsNegative() {
			return v
		}
	}
	return decimal.Zero
}

// amountIn reads {"value": .., "currency": ..} when currency matches.
func amountIn(v any, currency string) (decimal.Decimal, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return decimal.Zero, false
	}
	cur, _ := asString(m["currency"])
	if !strings.EqualFold(strings.TrimSpace(cur), currency) {
		return decimal.Zero, false
	}
	s, ok := asNumberString(m["value"])
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(normalizeAmount(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return s
}

func extractID(it ebay.Item) string {
	if v, ok := asNumberString(it.Raw["itemId"]); ok && v != "" {
		return v
	}
	if v, ok := asNumberString(it.Raw["legacyItemId"]); ok && v != "" {
		return v
	}
	return ""
}

func extractTitle(it ebay.Item) string {
	return strings.TrimSpace(pickString(it.Raw, "title"))
}

func extractURL(it ebay.Item) string {
	for _, k := range []string{"itemAffiliateWebUrl", "itemWebUrl"} {
		if v, ok := asString(it.Raw[k]); ok && strings.HasPrefix(v, "http") {
			return v
		}
	}
	return ""
}

func extractImage(it ebay.Item) string {
	if img, ok := it.Raw["image"].(map[string]any); ok {
		if v, ok := asString(img["imageUrl"]); ok && v != "" {
			return v
		}
	}
	for _, k := range []string{"thumbnailImages", "additionalImages"} {
		if arr, ok := it.Raw[k].([]any); ok && len(arr) > 0 {
			if m, ok := arr[0].(map[string]any); ok {
				if v, ok := asString(m["imageUrl"]); ok && v != "" {
					return v
				}
			}
		}
	}
	return ""
}

var imageSizeToken = regexp.MustCompile(`s-l\d+\.`)

// UpscaleImage asks the image CDN for its largest rendition.
func UpscaleImage(u string) string {
	if !imageSizeToken.MatchString(u) {
		return u
	}
	return imageSizeToken.ReplaceAllString(u, "s-l1600.")
}

// ItemAttributes are the fields the filter rules look at.
type ItemAttributes struct {
	ConditionID string
	Condition   string
	Seller      string
	SellerType  string
	Categories  []string
	Country     string
}

func Attributes(it ebay.Item) ItemAttributes {
	a := ItemAttributes{}
	a.ConditionID, _ = asNumberString(it.Raw["conditionId"])
	a.Condition = strings.TrimSpace(pickString(it.Raw, "condition"))

	if s, ok := it.Raw["seller"].(map[string]any); ok {
		a.Seller = strings.TrimSpace(pickString(s, "username"))
		a.SellerType = strings.ToUpper(strings.TrimSpace(pickString(s, "sellerAccountType")))
	}

	seen := map[string]struct{}{}
	add := func(v any) {
		if s, ok := asNumberString(v); ok && s != "" {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				a.Categories = append(a.Categories, s)
			}
		}
	}
	add(it.Raw["categoryId"])
	if arr, ok := it.Raw["categories"].([]any); ok {
		for _, c := range arr {
			if m, ok := c.(map[string]any); ok {
				add(m["categoryId"])
			}
		}
	}
	if arr, ok := it.Raw["leafCategoryIds"].([]any); ok {
		for _, c := range arr {
			add(c)
		}
	}

	if loc, ok := it.Raw["itemLocation"].(map[string]any); ok {
		a.Country = strings.ToUpper(strings.TrimSpace(pickString(loc, "country")))
	}
	return a
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := asString(m[k]); ok && s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return s, true
}

func asNumberString(v any) (string, bool) {
	switch t := v.(type) {
	case json.Number:
		return t.String(), true
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t)), true
		}
		return fmt.Sprintf("%v", t), true
	case int:
		return fmt.Sprintf("%d", t), true
	case int64:
		return fmt.Sprintf("%d", t), true
	case string:
		if t != "" {
			return t, true
		}
	}
	return "", false
}
