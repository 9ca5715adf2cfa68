package rpc

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"agentpay/core"
	"agentpay/observability"
)

const (
	defaultMaxBodyBytes = 1 << 20 // 1 MiB
	requestIDHeader     = "X-Request-ID"
)

// ServerConfig controls request limits and client identification.
type ServerConfig struct {
	ServiceName       string
	MaxBodyBytes      int64
	RequestsPerMinute float64
	Burst             int
	// TrustedProxies lists peers whose X-Forwarded-For header is honoured.
	TrustedProxies []string
	// EventBuffer sizes each websocket subscriber's queue.
	EventBuffer int
}

// Server exposes the ledger over JSON-RPC and a websocket event stream.
type Server struct {
	node    *core.Node
	cfg     ServerConfig
	logger  *slog.Logger
	limiter *RateLimiter
	metrics *observability.RPCMetricsRegistry
	trusted map[string]struct{}
}

// NewServer builds the JSON-RPC server for node. Zero config fields fall back
// to defaults.
func NewServer(node *core.Node, cfg ServerConfig, logger *slog.Logger) *Server {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "agentpayd"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	trusted := make(map[string]struct{}, len(cfg.TrustedProxies))
	for _, proxy := range cfg.TrustedProxies {
		if trimmed := strings.TrimSpace(proxy); trimmed != "" {
			trusted[trimmed] = struct{}{}
		}
	}
	metrics := observability.RPCMetrics()
	return &Server{
		node:    node,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "rpc")),
		limiter: NewRateLimiter(RateLimit{RequestsPerMinute: cfg.RequestsPerMinute, Burst: cfg.Burst}, metrics),
		metrics: metrics,
		trusted: trusted,
	}
}

// Handler returns the HTTP router: POST /rpc, GET /events, GET /healthz and
// GET /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(limited chi.Router) {
		limited.Use(s.limiter.Middleware(s.clientID))
		limited.Post("/rpc", s.handle)
		limited.Get("/events", s.handleEvents)
	})

	return otelhttp.NewHandler(r, s.cfg.ServiceName)
}

// requestID tags every request with an id, reusing the caller's when sent.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

func (s *Server) observe(method string, failed bool, start time.Time) {
	s.metrics.Observe(method, failed, time.Since(start))
}
