// Package postgres is the optional SQL backend for price history.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"preisradar/internal/domain/models"
	"preisradar/internal/repository"
)

//go:embed schema.sql
var schema string

// NewPool creates and verifies a pgxpool connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

type History struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewHistory(pool *pgxpool.Pool, log *slog.Logger) *History {
	if log == nil {
		log = slog.Default()
	}
	return &History{pool: pool, log: log}
}

// Migrate creates the history table when missing.
func (h *History) Migrate(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate price_history: %w", err)
	}
	return nil
}

const upsertSQL = `
INSERT INTO price_history (slug, day, min_eur, avg_eur, n)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (slug, day) DO UPDATE
SET min_eur = EXCLUDED.min_eur,
    avg_eur = EXCLUDED.avg_eur,
    n = EXCLUDED.n,
    updated_at = now()`

func (h *History) Upsert(ctx context.Context, slug string, rec models.HistoryRecord) error {
	if err := repository.CheckSlug(slug); err != nil {
		return fmt.Errorf("%w: %q", err, slug)
	}
	day, err := rec.Day()
	if err != nil {
		return fmt.Errorf("history record date %q: %w", rec.Date, err)
	}
	if _, err := h.pool.Exec(ctx, upsertSQL, slug, day, rec.Min, rec.Avg, rec.N); err != nil {
		return fmt.Errorf("upsert history slug=%s day=%s: %w", slug, rec.Date, err)
	}
	h.log.Info("history upserted", "slug", slug, "date", rec.Date, "min", rec.Min, "backend", "postgres")
	return nil
}

const loadSQL = `
SELECT day, min_eur::float8, avg_eur::float8, n
FROM price_history
WHERE slug = $1
ORDER BY day`

func (h *History) Load(ctx context.Context, slug string) ([]models.HistoryRecord, error) {
	rows, err := h.pool.Query(ctx, loadSQL, slug)
	if err != nil {
		return nil, fmt.Errorf("load history slug=%s: %w", slug, err)
	}
	defer rows.Close()

	out := make([]models.HistoryRecord, 0, 64)
	for rows.Next() {
		var (
			day time.Time
			r   models.HistoryRecord
		)
		if err := rows.Scan(&day, &r.Min, &r.Avg, &r.N); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		r.Date = day.Format(models.DateLayout)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

var _ repository.HistoryStore = (*History)(nil)
