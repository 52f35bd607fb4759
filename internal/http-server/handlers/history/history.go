package history

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"preisradar/internal/domain/models"
	stats "preisradar/internal/history"
	"preisradar/internal/http-server/middleware"
	"preisradar/internal/http-server/query"
	"preisradar/internal/http-server/respond"
	"preisradar/internal/repository"
)

type Loader interface {
	Load(ctx context.Context, slug string) ([]models.HistoryRecord, error)
}

type Options struct {
	Log         *slog.Logger
	History     Loader
	ShortWindow int
	Now         func() time.Time
	Timeout     time.Duration
}

// NewGetHandler serves GET /products/{slug}/history?window=N. window picks
// the short window used for the trend.
func NewGetHandler(opts Options) http.HandlerFunc {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.ShortWindow <= 0 {
		opts.ShortWindow = 30
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if opts.History == nil {
			middleware.Logger(r.Context(), log).Error("history handler misconfigured: store is nil")
			respond.WriteInternalError(w)
			return
		}
		slug := r.PathValue("slug")
		if err := repository.CheckSlug(slug); err != nil {
			respond.WriteError(w, http.StatusBadRequest, "bad_request", "invalid product slug")
			return
		}

		window, err := query.IntRange(r, "window", opts.ShortWindow, 1, 365)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), opts.Timeout)
		defer cancel()

		records, err := opts.History.Load(ctx, slug)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			middleware.Logger(r.Context(), log).Error("history load failed", "slug", slug, "err", err)
			respond.WriteInternalError(w)
			return
		}
		if records == nil {
			records = []models.HistoryRecord{}
		}

		respond.WriteJSON(w, http.StatusOK, map[string]any{
			"slug":    slug,
			"window":  window,
			"summary": stats.Summarize(records, opts.Now(), window),
			"records": records,
		})
	}
}
