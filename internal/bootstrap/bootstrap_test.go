package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preisradar/internal/config"
	jsonfile "preisradar/internal/repository/json"
	"preisradar/internal/tokencache"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(t *testing.T, raw string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(raw), func(k string) string {
		return map[string]string{"EPN_CAMPAIGN_ID": "5338"}[k]
	})
	require.NoError(t, err)
	return cfg
}

func TestSearchFiltersFromConfig(t *testing.T) {
	cfg := testConfig(t, `
env: local
filters:
  default_category_id: "180349"
  min_price_eur: 5
  location_countries: [DE]
`)
	f := SearchFilters(cfg)
	assert.Equal(t,
		"price:[5..],priceCurrency:EUR,conditionIds:{1000|1500|1750},sellerAccountTypes:{BUSINESS},"+
			"buyingOptions:{FIXED_PRICE},itemLocationCountry:DE,categoryIds:180349",
		f.Expression())

	p := FilterPolicy(cfg.Filters)
	assert.Equal(t, "180349", p.DefaultCategoryID)
	assert.Equal(t, 5.0, p.MinPrice)
	assert.Equal(t, 0.5, p.ModelThreshold)

	aff := Affiliate(cfg)
	assert.Equal(t, "5338", aff.CampaignID)
	assert.Equal(t, "preisradar", aff.ReferenceID)
}

func TestLoadScorer(t *testing.T) {
	cfg := testConfig(t, "env: local\n")
	cfg.Data.ModelPath = filepath.Join(t.TempDir(), "model.json")

	s, th, err := LoadScorer(cfg, quiet)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, 0.5, th)

	require.NoError(t, os.WriteFile(cfg.Data.ModelPath,
		[]byte(`{"version":1,"bias":0.1,"threshold":0.7,"weights":{"catan":1}}`), 0o644))
	s, th, err = LoadScorer(cfg, quiet)
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, 0.7, th)
}

func TestBuildStores_Defaults(t *testing.T) {
	cfg := testConfig(t, "env: local\n")
	ctx := context.Background()

	h, closer, err := BuildHistoryStore(ctx, cfg, quiet)
	require.NoError(t, err)
	closer.Close()
	assert.IsType(t, &jsonfile.History{}, h)

	c, closer := BuildTokenCache(ctx, cfg, quiet)
	closer.Close()
	assert.IsType(t, &tokencache.Memory{}, c)

	cfg.TokenCache.RedisURL = "redis://127.0.0.1:1/0"
	c, _ = BuildTokenCache(ctx, cfg, quiet)
	assert.IsType(t, &tokencache.Memory{}, c, "unreachable redis falls back to memory")
}

func TestBuildFetcher(t *testing.T) {
	cfg := testConfig(t, "env: local\n")
	dir := t.TempDir()
	cfg.Data.OffersDir = filepath.Join(dir, "offers")
	cfg.Data.HistoryDir = filepath.Join(dir, "history")
	cfg.Data.LabelsDir = filepath.Join(dir, "labels")
	cfg.Data.ModelPath = filepath.Join(dir, "model.json")

	f, closer, err := BuildFetcher(context.Background(), cfg, quiet)
	require.NoError(t, err)
	defer closer.Close()
	require.NotNil(t, f)

	sum, err := f.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, sum.Skipped, "no credentials in the environment")
}
