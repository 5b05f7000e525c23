// Package server exposes the engine over an HTTP JSON API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/deidaraiorek/xmlsql/internal/config"
	"github.com/deidaraiorek/xmlsql/internal/ingest"
	"github.com/deidaraiorek/xmlsql/internal/logger"
	"github.com/deidaraiorek/xmlsql/internal/metrics"
	"github.com/deidaraiorek/xmlsql/internal/storage"
)

// Backend is the set of engine operations the API serves.
type Backend interface {
	LoadXML(text, name string) (*ingest.Result, error)
	LoadHTML(text, name string) (*ingest.Result, error)
	LoadURL(ctx context.Context, url, name string) (*ingest.Result, error)
	QuerySelector(selector string) (*storage.ResultSet, error)
	CompileSelector(selector string) (string, error)
	ExecuteQuery(sql string) (*storage.ResultSet, error)
	SearchText(text string) (*storage.ResultSet, error)
	ListDocuments() ([]storage.Document, error)
	RemoveDocument(id int64) error
	Reset() error
	Stats() (storage.Stats, error)
	ExportStore() ([]byte, error)
	ImportStore(data []byte) error
}

type Server struct {
	backend Backend
	cfg     *config.AppConfig
	metrics *metrics.Metrics
	log     *logger.Logger
	server  *http.Server
}

func NewServer(backend Backend, cfg *config.AppConfig, m *metrics.Metrics, log *logger.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		backend: backend,
		cfg:     cfg,
		metrics: m,
		log:     log,
	}

	s.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.handleListDocuments)
		r.Delete("/", s.handleReset)
		r.Post("/xml", s.handleLoadMarkup(s.backend.LoadXML))
		r.Post("/html", s.handleLoadMarkup(s.backend.LoadHTML))
		r.Post("/url", s.handleLoadURL)
		r.Delete("/{id}", s.handleRemoveDocument)
	})

	r.Route("/query", func(r chi.Router) {
		r.Post("/selector", s.handleQuerySelector)
		r.Post("/compile", s.handleCompile)
		r.Post("/sql", s.handleExecuteQuery)
		r.Post("/text", s.handleSearchText)
	})

	r.Get("/snapshot", s.handleExport)
	r.Put("/snapshot", s.handleImport)

	return r
}

// observe records metrics and an access log line for every request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.HTTPRequestsInFlight.Inc()
		defer s.metrics.HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		duration := time.Since(start)
		s.metrics.RecordHTTPRequest(route, fmt.Sprint(status), duration)
		s.log.LogHTTPRequest(r.Method, r.URL.Path, status, duration)
	})
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.LogServerStart(s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.LogServerShutdown()
	return s.server.Shutdown(ctx)
}
