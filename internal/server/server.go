package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/nhle/todolist/internal/auth"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
)

// shutdownTimeout bounds graceful shutdown after the run context ends.
const shutdownTimeout = 5 * time.Second

// Server serves the todo REST API.
type Server struct {
	store   store.Store
	auth    *auth.Service
	logger  *slog.Logger
	limiter *clientLimiter

	registry *prometheus.Registry
	metrics  *metrics
}

// New creates a Server. A nil logger falls back to slog.Default().
func New(st store.Store, svc *auth.Service, cfg model.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	perMinute := cfg.LoginPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	burst := cfg.LoginBurst
	if burst <= 0 {
		burst = 5
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Server{
		store:    st,
		auth:     svc,
		logger:   logger,
		limiter:  newClientLimiter(rate.Limit(float64(perMinute)/60), burst),
		registry: reg,
		metrics:  newMetrics(reg),
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	mux.Handle("POST /api/register", s.limited(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /api/login", s.limited(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	mux.Handle("GET /api/todos", s.authed(s.handleListTodos))
	mux.Handle("POST /api/todos", s.authed(s.handleCreateTodo))
	mux.Handle("POST /api/todos/reorder", s.authed(s.handleReorderTodos))
	mux.Handle("PUT /api/todos/{id}", s.authed(s.handleUpdateTodo))
	mux.Handle("DELETE /api/todos/{id}", s.authed(s.handleDeleteTodo))

	mux.Handle("GET /api/categories", s.authed(s.handleListCategories))
	mux.Handle("POST /api/categories", s.authed(s.handleCreateCategory))
	mux.Handle("PUT /api/categories/{id}", s.authed(s.handleRenameCategory))
	mux.Handle("DELETE /api/categories/{id}", s.authed(s.handleDeleteCategory))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	var h http.Handler = mux
	h = noCache(h)
	h = s.instrument(h)
	h = s.logRequests(h)
	h = s.recoverPanics(h)
	return h
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// authedHandler receives the identity resolved by auth.Middleware.
type authedHandler func(w http.ResponseWriter, r *http.Request, user model.User)

func (s *Server) authed(h authedHandler) http.Handler {
	return auth.Middleware(s.auth.Issuer(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Missing token")
			return
		}
		h(w, r, user)
	}))
}
