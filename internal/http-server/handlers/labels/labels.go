package labels

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"preisradar/internal/domain/models"
	"preisradar/internal/http-server/middleware"
	"preisradar/internal/http-server/respond"
)

type Store interface {
	Load(ctx context.Context, slug string) (models.LabelSet, error)
	Set(ctx context.Context, slug, id string, relevant bool) error
}

type Options struct {
	Log     *slog.Logger
	Store   Store
	Timeout time.Duration
}

type request struct {
	ID    string `json:"id"`
	Label *bool  `json:"label"`
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

// NewGetHandler serves GET /products/{slug}/labels.
func NewGetHandler(opts Options) http.HandlerFunc {
	log := opts.defaults()

	return func(w http.ResponseWriter, r *http.Request) {
		if opts.Store == nil {
			middleware.Logger(r.Context(), log).Error("labels handler misconfigured: store is nil")
			respond.WriteInternalError(w)
			return
		}
		slug := r.PathValue("slug")

		ctx, cancel := context.WithTimeout(r.Context(), opts.Timeout)
		defer cancel()

		set, err := opts.Store.Load(ctx, slug)
		if err != nil {
			if respond.WriteRepoError(w, err) {
				return
			}
			middleware.Logger(r.Context(), log).Error("labels load failed", "slug", slug, "err", err)
			respond.WriteInternalError(w)
			return
		}
		respond.WriteJSON(w, http.StatusOK, map[string]any{"slug": slug, "labels": set, "count": len(set)})
	}
}

// NewPostHandler serves POST /products/{slug}/labels {"id": "...", "label": bool}.
func NewPostHandler(opts Options) http.HandlerFunc {
	log := opts.defaults()

	return func(w http.ResponseWriter, r *http.Request) {
		if opts.Store == nil {
			middleware.Logger(r.Context(), log).Error("labels handler misconfigured: store is nil")
			respond.WriteInternalError(w)
			return
		}
		slug := r.PathValue("slug")

		var req request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			respond.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body")
			return
		}
		req.ID = strings.TrimSpace(req.ID)
		if req.ID == "" || req.Label == nil {
			respond.WriteError(w, http.StatusBadRequest, "bad_request", "id and label are required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), opts.Timeout)
		defer cancel()

		if err := opts.Store.Set(ctx, slug, req.ID, *req.Label); err != nil {
			if respond.WriteRepoError(w, err) {
				return
			}
			middleware.Logger(r.Context(), log).Error("label save failed", "slug", slug, "id", req.ID, "err", err)
			respond.WriteInternalError(w)
			return
		}
		respond.WriteJSON(w, http.StatusOK, map[string]any{"slug": slug, "id": req.ID, "label": *req.Label})
	}
}
