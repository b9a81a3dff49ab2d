package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/newsdesk/internal/cache"
	"github.com/deusflow/newsdesk/internal/metrics"
	"github.com/deusflow/newsdesk/internal/ratelimit"
)

func monitoringHandler(m *metrics.Metrics, store *cache.Store, limiter *ratelimit.HostLimiter) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler(m))
	mux.HandleFunc("/metrics", metricsHandler(m, store, limiter))
	return mux
}

func runMonitoringServer(ctx context.Context, addr string, m *metrics.Metrics, store *cache.Store,
	limiter *ratelimit.HostLimiter, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           monitoringHandler(m, store, limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("starting monitoring server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("stopping monitoring server")
		return srv.Shutdown(shutdownCtx)
	}
}

func healthHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()

		status := "ok"
		code := http.StatusOK
		if healthy, _ := stats["is_healthy"].(bool); !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]interface{}{
			"status":     status,
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		})
	}
}

// metricsHandler merges the run counters with cache sizes and per-host
// throttling. A nil limiter reports zero hosts.
func metricsHandler(m *metrics.Metrics, store *cache.Store, limiter *ratelimit.HostLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()
		cs := store.Stats()
		stats["cache_feed_keys"] = cs.FeedKeys
		stats["cache_items"] = cs.Items
		stats["cache_region_index"] = cs.Regions
		stats["rate_limit"] = limiter.Stats()

		writeJSON(w, http.StatusOK, stats)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
