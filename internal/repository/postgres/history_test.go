package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"preisradar/internal/domain/models"
	"preisradar/internal/repository"
)

func setupHistory(t *testing.T) *History {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("preisradar"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	h := NewHistory(pool, nil)
	require.NoError(t, h.Migrate(ctx))
	require.NoError(t, h.Migrate(ctx), "migration is repeatable")
	return h
}

func TestHistory_Upsert(t *testing.T) {
	h := setupHistory(t)
	ctx := context.Background()

	_, err := h.Load(ctx, "catan")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, h.Upsert(ctx, "catan", models.HistoryRecord{Date: "2026-03-31", Min: 29.99, Avg: 35, N: 4}))
	require.NoError(t, h.Upsert(ctx, "catan", models.HistoryRecord{Date: "2026-03-30", Min: 31}))
	require.NoError(t, h.Upsert(ctx, "catan", models.HistoryRecord{Date: "2026-03-31", Min: 27.5, Avg: 33.1, N: 5}))
	require.NoError(t, h.Upsert(ctx, "azul", models.HistoryRecord{Date: "2026-03-31", Min: 40}))

	recs, err := h.Load(ctx, "catan")
	require.NoError(t, err)
	assert.Equal(t, []models.HistoryRecord{
		{Date: "2026-03-30", Min: 31},
		{Date: "2026-03-31", Min: 27.5, Avg: 33.1, N: 5},
	}, recs)
}

func TestHistory_RejectsBadInput(t *testing.T) {
	h := NewHistory(nil, nil)
	ctx := context.Background()
	require.ErrorIs(t, h.Upsert(ctx, "../x", models.HistoryRecord{Date: "2026-03-31"}), repository.ErrInvalidSlug)
	require.Error(t, h.Upsert(ctx, "catan", models.HistoryRecord{Date: "yesterday"}))
}
