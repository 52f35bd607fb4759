package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"preisradar/internal/apis/ebay"
	"preisradar/internal/domain/models"
	"preisradar/internal/filter"
	"preisradar/internal/history"
	"preisradar/internal/planner"
	"preisradar/internal/relevance"
	"preisradar/internal/repository"
)

type Options struct {
	Policy planner.Policy
	// Filters is the search-time filter before per-product overrides.
	Filters       ebay.SearchFilters
	Limit         int
	Pages         int
	MaxOffers     int
	SearchSiteURL string
	Affiliate     ebay.Affiliate
}

type Deps struct {
	Ebay      ebay.Service
	Pipeline  *filter.Pipeline
	Snapshots repository.SnapshotStore
	History   repository.HistoryStore
	Labels    repository.LabelStore
	// Scorer is nil when no relevance model is deployed.
	Scorer relevance.Scorer
	Logger *slog.Logger
	Now    func() time.Time
}

type ProductOffersService struct {
	deps Deps
	opts Options
	log  *slog.Logger
}

func NewProductOffersService(deps Deps, opts Options) *ProductOffersService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.Limit <= 0 {
		opts.Limit = 25
	}
	if opts.Pages <= 0 {
		opts.Pages = 1
	}
	if opts.MaxOffers <= 0 {
		opts.MaxOffers = 8
	}
	if opts.MaxOffers > 100 {
		opts.MaxOffers = 100
	}
	if opts.Policy == "" {
		opts.Policy = planner.PolicySynonyms
	}
	return &ProductOffersService{deps: deps, opts: opts, log: deps.Logger}
}

// WithLogger returns a copy of s logging to l.
func (s *ProductOffersService) WithLogger(l *slog.Logger) *ProductOffersService {
	cp := *s
	if l != nil {
		cp.log = l
	}
	return &cp
}

type ProductResult struct {
	Slug    string
	Queries int
	Fetched int
	Kept    int
	Dropped filter.Stats
	Err     error
}

type RunSummary struct {
	// Skipped is set when no credentials are configured.
	Skipped  bool
	Products []ProductResult
	Kept     int
	Failed   int
}

// Run authenticates once and then processes products one after another.
// Authentication failure aborts before anything is written; a failing
// product is logged and the run continues.
func (s *ProductOffersService) Run(ctx context.Context, products []models.Product) (RunSummary, error) {
	var sum RunSummary

	tok, err := s.deps.Ebay.Authenticate(ctx)
	if errors.Is(err, ebay.ErrNoCredentials) {
		s.log.Info("no marketplace credentials configured, fetch skipped")
		sum.Skipped = true
		return sum, nil
	}
	if err != nil {
		return sum, fmt.Errorf("authenticate: %w", err)
	}
	if !s.opts.Affiliate.Enabled() {
		s.log.Warn("no affiliate campaign id, offer urls stay untagged")
	}

	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res := s.safeFetch(ctx, tok, p)
		sum.Products = append(sum.Products, res)
		if res.Err != nil {
			sum.Failed++
			s.log.Error("product failed", "product", p.Slug, "err", res.Err)
			continue
		}
		sum.Kept += res.Kept
		s.log.Info("product done",
			"product", p.Slug,
			"queries", res.Queries,
			"fetched", res.Fetched,
			"kept", res.Kept,
			"dropped", map[filter.Reason]int(res.Dropped),
		)
	}

	s.log.Info("fetch run done", "products", len(products), "kept", sum.Kept, "failed", sum.Failed)
	return sum, nil
}

func (s *ProductOffersService) safeFetch(ctx context.Context, tok ebay.Token, p models.Product) (res ProductResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("product panic", "product", p.Slug, "panic", r, "stack", string(debug.Stack()))
			res = ProductResult{Slug: p.Slug, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return s.FetchProduct(ctx, tok, p)
}

// FetchProduct searches every planned query, filters, ranks and persists.
func (s *ProductOffersService) FetchProduct(ctx context.Context, tok ebay.Token, p models.Product) ProductResult {
	res := ProductResult{Slug: p.Slug, Dropped: filter.Stats{}}

	queries := planner.Plan(p, s.opts.Policy)
	res.Queries = len(queries)
	if len(queries) == 0 {
		res.Err = fmt.Errorf("no search query for product %q", p.Slug)
		return res
	}

	filters := s.searchFilters(p)
	items := make([]ebay.Item, 0, len(queries)*s.opts.Limit)
	answered := false
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		found, ok := s.searchAll(ctx, tok, q, filters, p.Slug)
		items = append(items, found...)
		answered = answered || ok
	}
	res.Fetched = len(items)
	// keep the previous snapshot when no search call got through
	if !answered {
		res.Err = fmt.Errorf("all %d queries failed", len(queries))
		return res
	}

	labels, err := s.deps.Labels.Load(ctx, p.Slug)
	if err != nil {
		s.log.Warn("labels unavailable (continue)", "product", p.Slug, "err", err)
		labels = models.LabelSet{}
	}

	filtered := s.deps.Pipeline.Filter(filter.Request{
		Product:   p,
		Items:     items,
		Labels:    labels,
		Scorer:    s.deps.Scorer,
		SearchURL: s.opts.Affiliate.SearchURL(s.opts.SearchSiteURL, queries[0], p.Slug),
	})
	res.Dropped = filtered.Stats

	offers := Rank(filtered.Offers, s.opts.MaxOffers)
	res.Kept = len(offers)

	now := s.deps.Now().UTC()
	if err := s.deps.Snapshots.Save(ctx, p.Slug, repository.NewSnapshot(now, offers)); err != nil {
		res.Err = fmt.Errorf("save snapshot: %w", err)
		return res
	}

	if rec, ok := history.Record(now, offers); ok {
		if err := s.deps.History.Upsert(ctx, p.Slug, rec); err != nil {
			res.Err = fmt.Errorf("upsert history: %w", err)
			return res
		}
	}
	return res
}

// searchAll pages through one query. A failed page ends the query with what
// was collected so far; ok reports whether any page was answered.
func (s *ProductOffersService) searchAll(ctx context.Context, tok ebay.Token, q string, f ebay.SearchFilters, slug string) (out []ebay.Item, ok bool) {
	out = make([]ebay.Item, 0, s.opts.Limit)
	for page := 0; page < s.opts.Pages; page++ {
		items, err := s.deps.Ebay.Search(ctx, tok, ebay.SearchRequest{
			Query:   q,
			Filters: f,
			Limit:   s.opts.Limit,
			Offset:  page * s.opts.Limit,
			Slug:    slug,
		})
		if err != nil {
			s.log.Warn("search failed, treated as empty", "product", slug, "query", q, "page", page, "err", err)
			break
		}
		ok = true
		out = append(out, items...)
		if len(items) < s.opts.Limit {
			break
		}
	}
	return out, ok
}

func (s *ProductOffersService) searchFilters(p models.Product) ebay.SearchFilters {
	f := s.opts.Filters
	if p.CategoryID != "" {
		f.CategoryID = p.CategoryID
	}
	if len(p.ConditionIDs) > 0 {
		f.ConditionIDs = p.ConditionIDs
	}
	if st := strings.ToUpper(strings.TrimSpace(p.SellerAccountType)); st != "" {
		f.SellerAccountTypes = []string{st}
	}
	if p.PriceFilter.Min > f.PriceMin {
		f.PriceMin = p.PriceFilter.Min
	}
	if p.PriceFilter.Max > 0 {
		f.PriceMax = p.PriceFilter.Max
	}
	f.Aspects = p.AspectFilters
	return f
}

// Rank sorts by total ascending, offers without a total last, and keeps at
// most limit entries.
func Rank(offers []models.Offer, limit int) []models.Offer {
	out := append([]models.Offer(nil), offers...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].TotalEUR, out[j].TotalEUR
		switch {
		case a <= 0:
			return false
		case b <= 0:
			return true
		default:
			return a < b
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []models.Offer{}
	}
	return out
}
