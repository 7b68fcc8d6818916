package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/go-advocate-search/advocate"
	"github.com/goliatone/go-advocate-search/internal/events"
	"github.com/goliatone/go-advocate-search/internal/logger"
	"github.com/goliatone/go-advocate-search/internal/metrics"
	"github.com/goliatone/go-advocate-search/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Searcher answers directory queries.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
	Get(ctx context.Context, id string) (*advocate.Advocate, error)
	Bounds() search.Bounds
}

// Pinger reports store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Broadcaster forwards invalidations to other instances.
type Broadcaster interface {
	Publish(ctx context.Context, inv events.Invalidation) error
}

// Options wires optional collaborators into the router.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.HTTP
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Invalidator enables POST /api/cache/invalidate when set.
	Invalidator events.Invalidator
	// Broadcaster, when set, relays admin invalidations over NATS.
	Broadcaster   Broadcaster
	HealthTimeout time.Duration
}

// Server holds the HTTP handlers for the directory API.
type Server struct {
	searcher    Searcher
	health      Pinger
	logger      *zap.Logger
	metrics     *metrics.HTTP
	invalidator events.Invalidator
	broadcaster Broadcaster
	healthTO    time.Duration
}

// NewRouter builds the chi router serving the directory API.
func NewRouter(searcher Searcher, health Pinger, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	healthTO := opts.HealthTimeout
	if healthTO <= 0 {
		healthTO = 2 * time.Second
	}

	s := &Server{
		searcher:    searcher,
		health:      health,
		logger:      log,
		metrics:     opts.Metrics,
		invalidator: opts.Invalidator,
		broadcaster: opts.Broadcaster,
		healthTO:    healthTO,
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(log))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "Method not allowed")
	})

	r.Get("/healthz", s.Health)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/advocates", s.ListAdvocates)
		r.Get("/advocates/{id}", s.GetAdvocate)
		if s.invalidator != nil {
			r.Post("/cache/invalidate", s.InvalidateCache)
		}
	})

	return r
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					log.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Cache-Control", cacheNoStore)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(errorBody{
						Error:   errInternal,
						Message: "Unexpected error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi's RequestID middleware already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := log.With(zap.String("request_id", requestID))
			ctx := logger.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
