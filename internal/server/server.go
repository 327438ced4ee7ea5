package server

import (
	"context"
	"net/http"
	"time"

	"github.com/brk3/healthdata/internal/config"
	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/internal/logger"
	"github.com/brk3/healthdata/pkg/activity"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Importer is implemented by stores that accept new summaries.
type Importer interface {
	PutSummaries(ctx context.Context, sums []activity.Summary) error
}

type Server struct {
	cfg   *config.Config
	store healthstore.Store
}

func New(cfg *config.Config, store healthstore.Store) *Server {
	return &Server{cfg: cfg, store: store}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(metricsMiddleware)

	r.Get("/version", s.getVersionInfo)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.apiKeyMiddleware)
		r.Post("/authorization", s.requestAuthorization)
		r.Get("/summaries", s.listSummaries)
		r.Post("/summaries", s.importSummaries)
		r.Get("/entries", s.listEntries)
	})
	return r
}

// ListenAndServe serves until ctx is canceled, then drains for up to five
// seconds.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
