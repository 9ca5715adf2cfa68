package observability

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetricsRegistry records ledger operation outcomes and settled volume.
type LedgerMetricsRegistry struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	volume     *prometheus.CounterVec
	bonuses    *prometheus.CounterVec
}

// RPCMetricsRegistry records JSON-RPC request outcomes.
type RPCMetricsRegistry struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles prometheus.Counter
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetricsRegistry

	rpcMetricsOnce sync.Once
	rpcRegistry    *RPCMetricsRegistry
)

// LedgerMetrics returns the lazily-initialised ledger metrics registry.
func LedgerMetrics() *LedgerMetricsRegistry {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetricsRegistry{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agentpay",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Ledger operations segmented by operation and outcome reason.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "agentpay",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for ledger operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agentpay",
				Subsystem: "ledger",
				Name:      "settled_volume_total",
				Help:      "Settled base units segmented by payout leg.",
			}, []string{"leg"}),
			bonuses: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agentpay",
				Subsystem: "campaign",
				Name:      "bonuses_total",
				Help:      "Campaign completions with a bonus due, segmented by whether it was paid.",
			}, []string{"result"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.operations,
			ledgerRegistry.latency,
			ledgerRegistry.volume,
			ledgerRegistry.bonuses,
		)
	})
	return ledgerRegistry
}

// Observe records a finished ledger operation. An empty reason is reported
// as "ok".
func (m *LedgerMetricsRegistry) Observe(operation, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	if reason == "" {
		reason = "ok"
	}
	m.operations.WithLabelValues(operation, reason).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordVolume adds amount to the settled volume for leg.
func (m *LedgerMetricsRegistry) RecordVolume(leg string, amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	m.volume.WithLabelValues(leg).Add(value)
}

// RecordBonus counts a campaign bonus outcome.
func (m *LedgerMetricsRegistry) RecordBonus(paid bool) {
	if m == nil {
		return
	}
	result := "skipped"
	if paid {
		result = "paid"
	}
	m.bonuses.WithLabelValues(result).Inc()
}

// RPCMetrics returns the lazily-initialised RPC metrics registry.
func RPCMetrics() *RPCMetricsRegistry {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &RPCMetricsRegistry{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agentpay",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "agentpay",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "agentpay",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Requests rejected by the per-client rate limiter.",
			}),
		}
		prometheus.MustRegister(rpcRegistry.requests, rpcRegistry.latency, rpcRegistry.throttles)
	})
	return rpcRegistry
}

// Observe records the outcome of a JSON-RPC call.
func (m *RPCMetricsRegistry) Observe(method string, failed bool, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if failed {
		outcome = "error"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle counts a rate limited request.
func (m *RPCMetricsRegistry) RecordThrottle() {
	if m == nil {
		return
	}
	m.throttles.Inc()
}
