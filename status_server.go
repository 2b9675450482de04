package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alufers/stars-league-bot/store"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

type recentLister interface {
	Recent(ctx context.Context, limit int) ([]store.NotificationRecord, error)
}

type statusServer struct {
	ping   func(ctx context.Context) error
	ledger recentLister
	logger *zap.Logger
}

// newStatusRouter serves health checks, Prometheus metrics and the most
// recent notification records.
func newStatusRouter(ping func(ctx context.Context) error, ledger recentLister, logger *zap.Logger) *chi.Mux {
	s := &statusServer{ping: ping, ledger: ledger, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", s.health)
		r.Get("/db", s.healthDB)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/notifications", s.notifications)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *statusServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *statusServer) healthDB(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ping(ctx); err != nil {
		s.logger.Warn("Database health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *statusServer) notifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecentLimit)
	}
	recs, err := s.ledger.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list notification records", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list notifications"})
		return
	}
	if recs == nil {
		recs = []store.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(recs),
		"notifications": recs,
	})
}

// serveStatus runs srv until ctx is done, then shuts it down.
func serveStatus(ctx context.Context, srv *http.Server, logger *zap.Logger) {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Status server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("Status server failed", zap.Error(err))
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Status server shutdown", zap.Error(err))
		}
	}
}
