package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preisradar/internal/domain/models"
	"preisradar/internal/repository"
)

func TestSnapshots_SaveLoadList(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "offers")
	r := NewSnapshots(dir, nil)

	_, err := r.Load(ctx, "catan")
	require.ErrorIs(t, err, repository.ErrNotFound)

	at := time.Date(2026, 3, 31, 6, 0, 0, 123, time.FixedZone("CEST", 2*3600))
	snap := repository.NewSnapshot(at, []models.Offer{{ID: "1", Title: "Catan", PriceEUR: 30, TotalEUR: 30, URL: "https://x/1"}})
	require.NoError(t, r.Save(ctx, "catan", snap))
	require.NoError(t, r.Save(ctx, "azul", repository.NewSnapshot(at, nil)))

	got, err := r.Load(ctx, "catan")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-31T04:00:00Z", got.FetchedAt)
	assert.Equal(t, snap.Offers, got.Offers)

	empty, err := r.Load(ctx, "azul")
	require.NoError(t, err)
	assert.NotNil(t, empty.Offers)
	assert.Empty(t, empty.Offers)

	slugs, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"azul", "catan"}, slugs)

	_, err = os.Stat(filepath.Join(dir, "catan.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestSnapshots_ReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	r := NewSnapshots(t.TempDir(), nil)
	now := time.Now()

	require.NoError(t, r.Save(ctx, "catan", repository.NewSnapshot(now, []models.Offer{{ID: "1"}, {ID: "2"}})))
	require.NoError(t, r.Save(ctx, "catan", repository.NewSnapshot(now, []models.Offer{{ID: "3"}})))

	got, err := r.Load(ctx, "catan")
	require.NoError(t, err)
	require.Len(t, got.Offers, 1)
	assert.Equal(t, "3", got.Offers[0].ID)
}

func TestSnapshots_InvalidSlug(t *testing.T) {
	r := NewSnapshots(t.TempDir(), nil)
	err := r.Save(context.Background(), "../etc/passwd", repository.Snapshot{})
	require.ErrorIs(t, err, repository.ErrInvalidSlug)
}

func TestSnapshots_ListMissingDir(t *testing.T) {
	r := NewSnapshots(filepath.Join(t.TempDir(), "none"), nil)
	slugs, err := r.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, slugs)
}

func TestHistory_UpsertIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	h := NewHistory(dir, nil)

	require.NoError(t, h.Upsert(ctx, "catan", models.HistoryRecord{Date: "2026-03-30", Min: 31}))
	require.NoError(t, h.Upsert(ctx, "catan", models.HistoryRecord{Date: "2026-03-31", Min: 29.99, Avg: 35, N: 4}))
	require.NoError(t, h.Upsert(ctx, "catan", models.HistoryRecord{Date: "2026-03-31", Min: 27.5, Avg: 33, N: 5}))

	recs, err := h.Load(ctx, "catan")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, models.HistoryRecord{Date: "2026-03-30", Min: 31}, recs[0])
	assert.Equal(t, models.HistoryRecord{Date: "2026-03-31", Min: 27.5, Avg: 33, N: 5}, recs[1])
}

func TestHistory_PreservesOtherLines(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := filepath.Join(dir, "catan.jsonl")
	legacy := `{"date": "2026-03-01", "min": 30.0, "note": "kept"}` + "\n\n" +
		`{"date":"2026-03-02","min":28}` + "\n" +
		`{"date":"2026-03-02","min":27}` + "\n" +
		`not json` + "\n"
	require.NoError(t, os.WriteFile(p, []byte(legacy), 0o644))

	h := NewHistory(dir, nil)
	require.NoError(t, h.Upsert(ctx, "catan", models.HistoryRecord{Date: "2026-03-02", Min: 25}))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.Equal(t, []string{
		`{"date": "2026-03-01", "min": 30.0, "note": "kept"}`,
		`{"date":"2026-03-02","min":25}`,
		`not json`,
	}, lines)

	recs, err := h.Load(ctx, "catan")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestHistory_Errors(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(t.TempDir(), nil)

	_, err := h.Load(ctx, "catan")
	require.ErrorIs(t, err, repository.ErrNotFound)

	err = h.Upsert(ctx, "catan", models.HistoryRecord{Date: "31.03.2026", Min: 1})
	require.Error(t, err)
}

func TestLabels_LoadSet(t *testing.T) {
	ctx := context.Background()
	l := NewLabels(filepath.Join(t.TempDir(), "labels"), nil)

	set, err := l.Load(ctx, "catan")
	require.NoError(t, err)
	assert.Empty(t, set)

	require.NoError(t, l.Set(ctx, "catan", "v1|1|0", false))
	require.NoError(t, l.Set(ctx, "catan", "v1|2|0", true))
	require.NoError(t, l.Set(ctx, "catan", "v1|2|0", false))

	set, err = l.Load(ctx, "catan")
	require.NoError(t, err)
	assert.Equal(t, models.LabelSet{"v1|1|0": false, "v1|2|0": false}, set)
	assert.True(t, set.Excludes("v1|1|0"))

	require.Error(t, l.Set(ctx, "catan", "  ", true))
}
