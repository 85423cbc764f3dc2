// Package web provides the HTTP server, pages and JSON API for exploring
// tables.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/dataplay/internal/config"
	"github.com/JonMunkholm/dataplay/internal/core"
	"github.com/JonMunkholm/dataplay/internal/session"
	"github.com/JonMunkholm/dataplay/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the data exploration UI and API.
type Server struct {
	cfg     *config.Config
	service *core.Service
	store   *session.Store
	tokens  *session.Tokens
	limiter *middleware.RateLimiter
	schemas *schemas
	router  *chi.Mux
	server  *http.Server
	stop    context.CancelFunc
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, store *session.Store, tokens *session.Tokens) *Server {
	s := &Server{
		cfg:     service.Config(),
		service: service,
		store:   store,
		tokens:  tokens,
		schemas: mustCompileSchemas(),
		router:  chi.NewRouter(),
	}
	if s.cfg.Rate.Enabled {
		s.limiter = middleware.NewRateLimiter(s.cfg.Rate)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))
	if s.limiter != nil {
		s.router.Use(s.limiter.Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	}

	s.router.Group(func(r chi.Router) {
		r.Use(s.withSession)

		// Pages
		r.Get("/", s.handleDashboard)
		r.Post("/upload", s.handleUploadForm)
		r.Post("/import", s.handleImportForm)
		r.Post("/result/save", s.handleSaveForm)
		r.Get("/table/{name}", s.handleTableView)
		r.Get("/table/{name}/aggregate", s.handleAggregateView)
		r.Get("/join", s.handleJoinView)

		// API routes
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(&s.cfg.Security))

			r.Post("/upload", s.handleUpload)
			r.Get("/upload/status", s.handleUploadQueueStatus)

			r.Get("/tables", s.handleListTables)
			r.Delete("/tables/{name}", s.handleRemoveTable)
			r.Post("/tables/{name}/select", s.handleSelectTable)
			r.Get("/tables/{name}/overview", s.handleOverview)
			r.Post("/tables/{name}/filter", s.handleFilter)
			r.Post("/tables/{name}/aggregate", s.handleAggregate)
			r.Get("/tables/{name}/export", s.handleExportTable)

			r.Post("/join", s.handleJoin)

			r.Get("/result", s.handleResult)
			r.Post("/result/save", s.handleSaveResult)
			r.Get("/result/export", s.handleExportResult)

			r.Get("/import/postgres/tables", s.handleListPostgresTables)
			r.Post("/import/postgres", s.handleImportPostgres)
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}

	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stop != nil {
		s.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"sessions":       s.store.Len(),
		"uploads":        s.service.UploadLimiterStatus(),
		"import_enabled": s.service.ImportEnabled(),
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
