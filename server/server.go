package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/ingest"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/quota"
)

// Server represents HTTP server instance
type Server struct {
	config   ConfigProvider
	articles ArticleStore
	lists    ListStore
	usage    UsageReporter
	runner   Runner
	version  string
	debug    bool
	started  time.Time

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// ArticleStore interface for article read endpoints
type ArticleStore interface {
	GetArticles(ctx context.Context, limit, offset int) ([]*domain.Article, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Article, error)
	CountArticles(ctx context.Context) (int, error)
}

// ListStore interface for list registry endpoints
type ListStore interface {
	GetLists(ctx context.Context) ([]*domain.List, error)
}

// UsageReporter interface for quota counters
type UsageReporter interface {
	StatsAll(ctx context.Context) ([]quota.Usage, error)
}

// Runner interface for on-demand ingestion
type Runner interface {
	RunNow(ctx context.Context, opts ingest.RunOptions) (*domain.RunSummary, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
	GetTriggerSecret() string
}

// New initializes a new server instance
func New(cfg ConfigProvider, articles ArticleStore, lists ListStore, usage UsageReporter, runner Runner, version string, debug bool) *Server {
	s := &Server{
		config:   cfg,
		articles: articles,
		lists:    lists,
		usage:    usage,
		runner:   runner,
		version:  version,
		debug:    debug,
		started:  time.Now(),
		router:   routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	lgr.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Handler exposes the router, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("xarticles", "jasonCodeSpace", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("POST /ingest", s.ingestHandler)
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /articles", s.articlesHandler)
		r.HandleFunc("GET /articles/{slug}", s.articleHandler)
		r.HandleFunc("GET /lists", s.listsHandler)
		r.HandleFunc("GET /usage", s.usageHandler)
	})
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
