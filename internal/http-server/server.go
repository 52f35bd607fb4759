package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"preisradar/internal/domain/models"
	"preisradar/internal/http-server/handlers/history"
	"preisradar/internal/http-server/handlers/labels"
	"preisradar/internal/http-server/handlers/products"
	"preisradar/internal/http-server/middleware"
	"preisradar/internal/http-server/respond"
)

type Server struct {
	log *slog.Logger
	mux *http.ServeMux
}

func New(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{log: log, mux: http.NewServeMux()}
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = middleware.RecoverPanic(s.log, h)
	h = middleware.AccessLog(s.log, h)
	h = middleware.WithRequestID(h)
	return h
}

type Deps struct {
	Catalog     []models.Product
	Snapshots   products.SnapshotLoader
	History     history.Loader
	Labels      labels.Store
	ShortWindow int
	Now         func() time.Time
	Timeout     time.Duration
}

func (s *Server) RegisterRoutes(dep Deps) {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	po := products.Options{
		Log:       s.log,
		Catalog:   dep.Catalog,
		Snapshots: dep.Snapshots,
		Timeout:   dep.Timeout,
	}
	s.mux.HandleFunc("GET /products", products.NewListHandler(po))
	s.mux.HandleFunc("GET /products/{slug}/offers", products.NewOffersHandler(po))

	s.mux.HandleFunc("GET /products/{slug}/history", history.NewGetHandler(history.Options{
		Log:         s.log,
		History:     dep.History,
		ShortWindow: dep.ShortWindow,
		Now:         dep.Now,
		Timeout:     dep.Timeout,
	}))

	lo := labels.Options{Log: s.log, Store: dep.Labels, Timeout: dep.Timeout}
	s.mux.HandleFunc("GET /products/{slug}/labels", labels.NewGetHandler(lo))
	s.mux.HandleFunc("POST /products/{slug}/labels", labels.NewPostHandler(lo))
}
