package ebay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"preisradar/internal/apis/ebay/endpoints"
	"preisradar/internal/apis/ebay/responses"
	"preisradar/internal/client"
	"preisradar/internal/tokencache"
)

type Item = responses.Item
type Token = responses.Token

// ErrNoCredentials means the run should be skipped, not failed.
var ErrNoCredentials = errors.New("ebay: client credentials not configured")

type Service interface {
	Authenticate(ctx context.Context) (Token, error)
	Search(ctx context.Context, tok Token, req SearchRequest) ([]Item, error)
}

type Options struct {
	BrowseURL   string
	TokenURL    string
	Scope       string
	Marketplace string
	Country     string

	ClientID     string
	ClientSecret string

	Affiliate Affiliate
	Cache     tokencache.Cache
	Logger    *slog.Logger
}

// Affiliate carries the partner-network tracking ids.
type Affiliate struct {
	CampaignID  string
	ReferenceID string
}

func (a Affiliate) Enabled() bool { return a.CampaignID != "" }

// maxReferenceLen caps the custom id in bytes.
const maxReferenceLen = 64

// Reference is the per-product custom id, e.g. "preisradar-catan".
func (a Affiliate) Reference(slug string) string {
	ref := a.ReferenceID
	if slug != "" {
		ref += "-" + slug
	}
	ref = strings.ReplaceAll(ref, " ", "-")
	if len(ref) > maxReferenceLen {
		// cut at the last rune that starts within the limit
		cut := 0
		for i := range ref {
			if i > maxReferenceLen {
				break
			}
			cut = i
		}
		ref = ref[:cut]
	}
	return ref
}

// Tag appends campaign parameters to rawURL unless a campaign id is already there.
func (a Affiliate) Tag(rawURL, slug string) string {
	if !a.Enabled() || rawURL == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Get("campid") != "" {
		return rawURL
	}
	q.Set("mkevt", "1")
	q.Set("mkcid", "1")
	q.Set("toolid", "10001")
	q.Set("campid", a.CampaignID)
	q.Set("customid", a.Reference(slug))
	u.RawQuery = q.Encode()
	return u.String()
}

// SearchURL is the public marketplace search page for query.
func (a Affiliate) SearchURL(siteURL, query, slug string) string {
	if siteURL == "" {
		return ""
	}
	u := siteURL + "?_nkw=" + url.QueryEscape(query)
	if a.Enabled() {
		u += "&campid=" + url.QueryEscape(a.CampaignID) + "&customid=" + url.QueryEscape(a.Reference(slug))
	}
	return u
}

type SearchFilters struct {
	Currency           string
	ConditionIDs       []string
	SellerAccountTypes []string
	BuyingOptions      []string
	CategoryID         string
	PriceMin           float64
	PriceMax           float64
	LocationCountries  []string
	Aspects            map[string][]string
}

// Expression renders the Browse API filter parameter.
func (f SearchFilters) Expression() string {
	parts := make([]string, 0, 8)
	if f.PriceMin > 0 || f.PriceMax > 0 {
		lo, hi := "", ""
		if f.PriceMin > 0 {
			lo = formatAmount(f.PriceMin)
		}
		if f.PriceMax > 0 {
			hi = formatAmount(f.PriceMax)
		}
		parts = append(parts, "price:["+lo+".."+hi+"]")
	}
	if f.Currency != "" {
		parts = append(parts, "priceCurrency:"+f.Currency)
	}
	if len(f.ConditionIDs) > 0 {
		parts = append(parts, "conditionIds:{"+strings.Join(f.ConditionIDs, "|")+"}")
	}
	if len(f.SellerAccountTypes) > 0 {
		parts = append(parts, "sellerAccountTypes:{"+strings.Join(f.SellerAccountTypes, "|")+"}")
	}
	if len(f.BuyingOptions) > 0 {
		parts = append(parts, "buyingOptions:{"+strings.Join(f.BuyingOptions, "|")+"}")
	}
	// the API accepts a single country only; several are checked after the fact
	if len(f.LocationCountries) == 1 {
		parts = append(parts, "itemLocationCountry:"+f.LocationCountries[0])
	}
	if f.CategoryID != "" {
		parts = append(parts, "categoryIds:"+f.CategoryID)
	}
	return strings.Join(parts, ",")
}

// AspectExpression renders aspect_filter; it needs a category to be meaningful.
func (f SearchFilters) AspectExpression() string {
	if f.CategoryID == "" || len(f.Aspects) == 0 {
		return ""
	}
	names := make([]string, 0, len(f.Aspects))
	for k, v := range f.Aspects {
		if len(v) > 0 {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)

	parts := []string{"categoryId:" + f.CategoryID}
	for _, k := range names {
		parts = append(parts, k+":{"+strings.Join(f.Aspects[k], "|")+"}")
	}
	return strings.Join(parts, ",")
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type SearchRequest struct {
	Query   string
	Filters SearchFilters
	Limit   int
	Offset  int
	// Slug feeds the affiliate reference id.
	Slug string
}

type service struct {
	api  *endpoints.Client
	opts Options
	log  *slog.Logger
}

func New(transport client.Transport, opts Options) Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Cache == nil {
		opts.Cache = tokencache.NewMemory()
	}
	return &service{
		api:  endpoints.New(transport, opts.BrowseURL, opts.TokenURL),
		opts: opts,
		log:  opts.Logger,
	}
}

func (s *service) Authenticate(ctx context.Context) (Token, error) {
	if s.opts.ClientID == "" || s.opts.ClientSecret == "" {
		return Token{}, ErrNoCredentials
	}

	tok, ok, err := s.opts.Cache.Get(ctx)
	if err != nil {
		s.log.Warn("token cache read failed (continue)", "err", err)
	} else if ok {
		s.log.Debug("token reused", "expires_at", tok.ExpiresAt)
		return tok, nil
	}

	tok, err = s.api.ExchangeToken(ctx, s.opts.ClientID, s.opts.ClientSecret, s.opts.Scope)
	if err != nil {
		return Token{}, fmt.Errorf("token exchange: %w", err)
	}
	if err := s.opts.Cache.Set(ctx, tok); err != nil {
		s.log.Warn("token cache write failed (continue)", "err", err)
	}
	s.log.Info("token acquired", "expires_at", tok.ExpiresAt)
	return tok, nil
}

func (s *service) Search(ctx context.Context, tok Token, req SearchRequest) ([]Item, error) {
	p := endpoints.SearchParams{
		Query:        req.Query,
		Filter:       req.Filters.Expression(),
		AspectFilter: req.Filters.AspectExpression(),
		CategoryIDs:  req.Filters.CategoryID,
		Sort:         "price",
		Limit:        req.Limit,
		Offset:       req.Offset,
		Token:        tok.AccessToken,
		Marketplace:  s.opts.Marketplace,
		EndUserCtx:   s.endUserCtx(req.Slug),
	}

	page, err := s.api.Search(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.Debug("search done", "query", req.Query, "offset", req.Offset, "items", len(page.Items), "total", page.Total)
	return page.Items, nil
}

func (s *service) endUserCtx(slug string) string {
	parts := make([]string, 0, 3)
	if s.opts.Country != "" {
		parts = append(parts, "contextualLocation=country="+s.opts.Country)
	}
	if s.opts.Affiliate.Enabled() {
		parts = append(parts,
			"affiliateCampaignId="+s.opts.Affiliate.CampaignID,
			"affiliateReferenceId="+s.opts.Affiliate.Reference(slug),
		)
	}
	return strings.Join(parts, ",")
}
