package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"preisradar/internal/apis/ebay"
	"preisradar/internal/apis/ebay/usecases"
	"preisradar/internal/config"
	"preisradar/internal/filter"
	"preisradar/internal/planner"
	"preisradar/internal/relevance"
	"preisradar/internal/repository"
	jsonfile "preisradar/internal/repository/json"
	"preisradar/internal/repository/postgres"
	"preisradar/internal/tokencache"
)

// Closer releases connections opened while building components.
type Closer func()

func (c Closer) Close() {
	if c != nil {
		c()
	}
}

// Affiliate returns the partner-network ids from the environment secrets.
func Affiliate(cfg *config.Config) ebay.Affiliate {
	return ebay.Affiliate{CampaignID: cfg.Secrets.CampaignID, ReferenceID: cfg.Secrets.ReferenceID}
}

func FilterPolicy(f config.FiltersConfig) filter.Policy {
	return filter.Policy{
		ExcludeTerms:      f.ExcludeTerms,
		ConditionIDs:      f.ConditionIDs,
		NewMarkers:        f.NewMarkers,
		SellerAccountType: f.SellerAccountType,
		LocationCountries: f.LocationCountries,
		DefaultCategoryID: f.DefaultCategoryID,
		MinPrice:          f.MinPriceEUR,
		ModelThreshold:    f.ModelThreshold,
	}
}

// SearchFilters is the search-time filter shared by every product.
func SearchFilters(cfg *config.Config) ebay.SearchFilters {
	f := cfg.Filters
	return ebay.SearchFilters{
		Currency:           cfg.Ebay.Currency,
		ConditionIDs:       f.ConditionIDs,
		SellerAccountTypes: []string{f.SellerAccountType},
		BuyingOptions:      f.BuyingOptions,
		CategoryID:         f.DefaultCategoryID,
		PriceMin:           f.MinPriceEUR,
		LocationCountries:  f.LocationCountries,
	}
}

// BuildHistoryStore picks the configured history backend.
func BuildHistoryStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.HistoryStore, Closer, error) {
	switch cfg.History.Backend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.History.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		h := postgres.NewHistory(pool, log)
		if err := h.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("history backend", "backend", "postgres")
		return h, pool.Close, nil
	default:
		log.Info("history backend", "backend", "jsonl", "dir", cfg.Data.HistoryDir)
		return jsonfile.NewHistory(cfg.Data.HistoryDir, log), nil, nil
	}
}

// BuildTokenCache uses Redis when configured and falls back to memory when
// Redis is unreachable.
func BuildTokenCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (tokencache.Cache, Closer) {
	if cfg.TokenCache.RedisURL == "" {
		return tokencache.NewMemory(), nil
	}
	rdb, err := tokencache.NewRedisClient(ctx, cfg.TokenCache.RedisURL)
	if err != nil {
		log.Warn("redis token cache unavailable, using memory", "err", err)
		return tokencache.NewMemory(), nil
	}
	log.Info("token cache", "backend", "redis", "key", cfg.TokenCache.Key)
	return tokencache.NewRedis(rdb, cfg.TokenCache.Key), func() { _ = rdb.Close() }
}

// LoadScorer loads the relevance model; nil when no artifact exists.
func LoadScorer(cfg *config.Config, log *slog.Logger) (relevance.Scorer, float64, error) {
	m, err := relevance.Load(cfg.Data.ModelPath)
	if err != nil {
		return nil, 0, err
	}
	if m == nil {
		log.Info("relevance model absent, soft filter off", "path", cfg.Data.ModelPath)
		return nil, cfg.Filters.ModelThreshold, nil
	}
	threshold := cfg.Filters.ModelThreshold
	if m.Threshold > 0 && m.Threshold < 1 {
		threshold = m.Threshold
	}
	log.Info("relevance model loaded", "path", cfg.Data.ModelPath, "tokens", len(m.Weights), "threshold", threshold)
	return m, threshold, nil
}

// BuildFetcher wires the fetch use case from configuration.
func BuildFetcher(ctx context.Context, cfg *config.Config, log *slog.Logger) (*usecases.ProductOffersService, Closer, error) {
	policy, err := planner.ParsePolicy(cfg.Fetch.QueryPolicy)
	if err != nil {
		return nil, nil, err
	}

	tr, err := BuildTransport(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("transport: %w", err)
	}

	scorer, threshold, err := LoadScorer(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("relevance model: %w", err)
	}

	hist, closeHist, err := BuildHistoryStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("history store: %w", err)
	}
	cache, closeCache := BuildTokenCache(ctx, cfg, log)

	aff := Affiliate(cfg)
	svc := ebay.New(tr, ebay.Options{
		BrowseURL:    cfg.Ebay.BrowseURL,
		TokenURL:     cfg.Ebay.TokenURL,
		Scope:        cfg.Ebay.Scope,
		Marketplace:  cfg.Ebay.Marketplace,
		Country:      cfg.Ebay.Country,
		ClientID:     cfg.Secrets.ClientID,
		ClientSecret: cfg.Secrets.ClientSecret,
		Affiliate:    aff,
		Cache:        cache,
		Logger:       log,
	})

	fp := FilterPolicy(cfg.Filters)
	fp.ModelThreshold = threshold

	fetcher := usecases.NewProductOffersService(usecases.Deps{
		Ebay:      svc,
		Pipeline:  filter.New(fp, cfg.Ebay.Currency, aff),
		Snapshots: jsonfile.NewSnapshots(cfg.Data.OffersDir, log),
		History:   hist,
		Labels:    jsonfile.NewLabels(cfg.Data.LabelsDir, log),
		Scorer:    scorer,
		Logger:    log,
	}, usecases.Options{
		Policy:        policy,
		Filters:       SearchFilters(cfg),
		Limit:         cfg.Ebay.SearchLimit,
		Pages:         cfg.Ebay.Pages,
		MaxOffers:     cfg.Fetch.MaxOffers,
		SearchSiteURL: cfg.Ebay.SearchSiteURL,
		Affiliate:     aff,
	})

	return fetcher, func() {
		closeCache.Close()
		closeHist.Close()
	}, nil
}
