package adminpanel

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/provnuk88/Web3bot/internal/infra"
	"github.com/provnuk88/Web3bot/internal/observability"
	"github.com/provnuk88/Web3bot/resources"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server exposes the read-only dashboard: aggregate stats, the
// leaderboard, the audit trail and member search. It never mutates state;
// moderation happens in the chat, the panel only observes it.
type Server struct {
	store  panelStore
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(listenAddr string, store panelStore) *Server {
	logger := observability.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		logger: logger.Named("adminpanel"),
	}
	s.srv = &http.Server{
		Addr:         listenAddr,
		Handler:      s.router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/", s.handleDashboard)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/top-users", s.handleTopUsers)
	r.Get("/api/logs", s.handleLogs)
	r.Get("/api/search", s.handleSearch)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) Start(ctx context.Context) error {
	infra.Go("adminpanel", func() {
		s.logger.Info("admin panel listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin panel server failed", zap.Error(err))
		}
	})
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	page, err := resources.FS.ReadFile("dashboard.html")
	if err != nil {
		s.logger.Error("cant read embedded dashboard", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
