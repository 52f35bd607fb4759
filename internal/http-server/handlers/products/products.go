package products

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"preisradar/internal/domain/models"
	"preisradar/internal/http-server/middleware"
	"preisradar/internal/http-server/respond"
	"preisradar/internal/repository"
)

type SnapshotLoader interface {
	Load(ctx context.Context, slug string) (repository.Snapshot, error)
}

type Options struct {
	Log       *slog.Logger
	Catalog   []models.Product
	Snapshots SnapshotLoader
	Timeout   time.Duration
}

func (o *Options) defaults() *slog.Logger {
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o.Log
}

// Summary is one row of the product index.
type Summary struct {
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	FetchedAt string   `json:"fetched_at,omitempty"`
	Count     int      `json:"count"`
	BestTotal *float64 `json:"best_total_eur"`
}

// NewListHandler serves GET /products: every catalog product with its
// latest snapshot headline.
func NewListHandler(opts Options) http.HandlerFunc {
	log := opts.defaults()

	return func(w http.ResponseWriter, r *http.Request) {
		if opts.Snapshots == nil {
			middleware.Logger(r.Context(), log).Error("products handler misconfigured: snapshots is nil")
			respond.WriteInternalError(w)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), opts.Timeout)
		defer cancel()

		out := make([]Summary, 0, len(opts.Catalog))
		for _, p := range opts.Catalog {
			s := Summary{Slug: p.Slug, Title: p.Title}
			snap, err := opts.Snapshots.Load(ctx, p.Slug)
			switch {
			case errors.Is(err, repository.ErrNotFound):
			case err != nil:
				middleware.Logger(r.Context(), log).Warn("snapshot load failed (continue)", "slug", p.Slug, "err", err)
			default:
				s.FetchedAt = snap.FetchedAt
				s.Count = len(snap.Offers)
				if len(snap.Offers) > 0 && snap.Offers[0].TotalEUR > 0 {
					v := snap.Offers[0].TotalEUR
					s.BestTotal = &v
				}
			}
			out = append(out, s)
		}

		respond.WriteJSON(w, http.StatusOK, map[string]any{"products": out, "count": len(out)})
	}
}

// NewOffersHandler serves GET /products/{slug}/offers.
func NewOffersHandler(opts Options) http.HandlerFunc {
	log := opts.defaults()

	return func(w http.ResponseWriter, r *http.Request) {
		if opts.Snapshots == nil {
			middleware.Logger(r.Context(), log).Error("offers handler misconfigured: snapshots is nil")
			respond.WriteInternalError(w)
			return
		}
		slug := r.PathValue("slug")

		ctx, cancel := context.WithTimeout(r.Context(), opts.Timeout)
		defer cancel()

		snap, err := opts.Snapshots.Load(ctx, slug)
		if err != nil {
			if respond.WriteRepoError(w, err) {
				return
			}
			middleware.Logger(r.Context(), log).Error("snapshot load failed", "slug", slug, "err", err)
			respond.WriteInternalError(w)
			return
		}

		respond.WriteJSON(w, http.StatusOK, map[string]any{
			"slug":       slug,
			"fetched_at": snap.FetchedAt,
			"offers":     snap.Offers,
			"count":      len(snap.Offers),
		})
	}
}
