// Package ops serves the operational HTTP endpoints next to the gRPC API.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/pet-keeper/internal/metrics"
)

// Pinger reports storage reachability. Nil means there is nothing to ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Snapshotter exposes action counters.
type Snapshotter interface {
	Snapshot() metrics.Snapshot
}

// Options configure NewRouter.
type Options struct {
	Log         *zap.Logger
	DB          Pinger
	Metrics     Snapshotter
	PingTimeout time.Duration // default 2s
}

// NewRouter builds the ops router: GET /health and GET /ops/kpi.
func NewRouter(opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 2 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(accessLog(opts.Log))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if opts.DB != nil {
			ctx, cancel := context.WithTimeout(req.Context(), opts.PingTimeout)
			defer cancel()
			if err := opts.DB.Ping(ctx); err != nil {
				opts.Log.Warn("health: storage ping failed", zap.Error(err))
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/ops/kpi", func(w http.ResponseWriter, _ *http.Request) {
		var snap metrics.Snapshot
		if opts.Metrics != nil {
			snap = opts.Metrics.Snapshot()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			opts.Log.Warn("kpi: encode", zap.Error(err))
		}
	})

	return r
}

func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("dur", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
