package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preisradar/internal/domain/models"
	"preisradar/internal/repository"
	jsonfile "preisradar/internal/repository/json"
)

type fixture struct {
	srv    *httptest.Server
	snaps  *jsonfile.Snapshots
	hist   *jsonfile.History
	labels *jsonfile.Labels
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := fixture{
		snaps:  jsonfile.NewSnapshots(dir+"/offers", log),
		hist:   jsonfile.NewHistory(dir+"/history", log),
		labels: jsonfile.NewLabels(dir+"/labels", log),
	}

	s := New(log)
	s.RegisterRoutes(Deps{
		Catalog:     []models.Product{{Slug: "azul", Title: "Azul"}, {Slug: "catan", Title: "Catan"}},
		Snapshots:   f.snaps,
		History:     f.hist,
		Labels:      f.labels,
		ShortWindow: 30,
		Now:         func() time.Time { return time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC) },
	})
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f fixture) do(t *testing.T, method, path, body string) (int, map[string]any, http.Header) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.ContentLength != 0 {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out, resp.Header
}

func TestHealthzAndRequestID(t *testing.T) {
	f := newFixture(t)
	code, body, hdr := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Len(t, hdr.Get("X-Request-Id"), 26, "ulid")
}

func TestProductsAndOffers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	snap := repository.NewSnapshot(time.Date(2026, 3, 31, 6, 0, 0, 0, time.UTC), []models.Offer{
		{ID: "1", Title: "Catan", PriceEUR: 25, ShippingEUR: 4.95, TotalEUR: 29.95, URL: "https://x/1"},
	})
	require.NoError(t, f.snaps.Save(ctx, "catan", snap))

	code, body, _ := f.do(t, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, code)
	list := body["products"].([]any)
	require.Len(t, list, 2)
	azul := list[0].(map[string]any)
	assert.Equal(t, "azul", azul["slug"])
	assert.Nil(t, azul["best_total_eur"])
	catan := list[1].(map[string]any)
	assert.Equal(t, 29.95, catan["best_total_eur"])
	assert.Equal(t, 1.0, catan["count"])

	code, body, _ = f.do(t, http.MethodGet, "/products/catan/offers", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2026-03-31T06:00:00Z", body["fetched_at"])
	offers := body["offers"].([]any)
	require.Len(t, offers, 1)
	assert.Equal(t, "1", offers[0].(map[string]any)["itemId"])

	code, body, _ = f.do(t, http.MethodGet, "/products/azul/offers", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error"].(map[string]any)["code"])

	code, _, _ = f.do(t, http.MethodGet, "/products/.hidden/offers", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, _ = f.do(t, http.MethodDelete, "/products/catan/offers", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.hist.Upsert(ctx, "catan", models.HistoryRecord{Date: "2026-03-30", Min: 30}))
	require.NoError(t, f.hist.Upsert(ctx, "catan", models.HistoryRecord{Date: "2026-03-31", Min: 27}))

	code, body, _ := f.do(t, http.MethodGet, "/products/catan/history?window=7", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 7.0, body["window"])
	summary := body["summary"].(map[string]any)
	assert.Equal(t, 27.0, summary["current_min"])
	assert.Equal(t, "good", summary["trend"])
	assert.Len(t, body["records"], 2)

	code, body, _ = f.do(t, http.MethodGet, "/products/azul/history", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["records"])
	assert.Nil(t, body["summary"].(map[string]any)["current_min"])

	code, _, _ = f.do(t, http.MethodGet, "/products/catan/history?window=0", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _, _ = f.do(t, http.MethodGet, "/products/catan/history?window=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLabels(t *testing.T) {
	f := newFixture(t)

	code, body, _ := f.do(t, http.MethodPost, "/products/catan/labels", `{"id":"v1|1|0","label":false}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["label"])

	set, err := f.labels.Load(context.Background(), "catan")
	require.NoError(t, err)
	assert.True(t, set.Excludes("v1|1|0"))

	code, body, _ = f.do(t, http.MethodGet, "/products/catan/labels", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"v1|1|0": false}, body["labels"])

	for _, bad := range []string{`{"id":"1"}`, `{"label":true}`, `{"id":"1","label":true,"x":1}`, `nope`} {
		code, _, _ = f.do(t, http.MethodPost, "/products/catan/labels", bad)
		assert.Equal(t, http.StatusBadRequest, code, bad)
	}
}
