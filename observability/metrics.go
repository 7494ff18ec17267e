package observability

import (
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	jackpotMetricsOnce sync.Once
	jackpotRegistry    *JackpotMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record HTTP
// API activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "jackpot",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by route group, route, and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "jackpot",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by route group, route, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "jackpot",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "jackpot",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// JackpotMetrics tracks auction activity applied by the node.
type JackpotMetrics struct {
	operations *prometheus.CounterVec
	rejections *prometheus.CounterVec
	pot        prometheus.Gauge
	price      prometheus.Gauge
	round      prometheus.Gauge
	deadline   prometheus.Gauge
	paidOut    *prometheus.CounterVec
	applyTime  *prometheus.HistogramVec
}

// Jackpot returns the lazily-initialised auction metrics registry.
func Jackpot() *JackpotMetrics {
	jackpotMetricsOnce.Do(func() {
		jackpotRegistry = &JackpotMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "jackpot",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Applied operations segmented by type.",
			}, []string{"op"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "jackpot",
				Subsystem: "engine",
				Name:      "rejections_total",
				Help:      "Rejected operations segmented by type and error kind.",
			}, []string{"op", "kind"}),
			pot: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "jackpot",
				Subsystem: "round",
				Name:      "pot",
				Help:      "Pot of the live round in base units.",
			}),
			price: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "jackpot",
				Subsystem: "round",
				Name:      "bid_price",
				Help:      "Price required for the next bid in base units.",
			}),
			round: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "jackpot",
				Subsystem: "round",
				Name:      "id",
				Help:      "Identifier of the live round.",
			}),
			deadline: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "jackpot",
				Subsystem: "round",
				Name:      "deadline_unix",
				Help:      "Deadline of the live round as a unix timestamp, zero when unset.",
			}),
			paidOut: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "jackpot",
				Subsystem: "settlement",
				Name:      "paid_total",
				Help:      "Amounts distributed by settled rounds segmented by recipient.",
			}, []string{"recipient"}),
			applyTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "jackpot",
				Subsystem: "engine",
				Name:      "apply_duration_seconds",
				Help:      "Time spent applying a transaction, including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
		}
		prometheus.MustRegister(
			jackpotRegistry.operations,
			jackpotRegistry.rejections,
			jackpotRegistry.pot,
			jackpotRegistry.price,
			jackpotRegistry.round,
			jackpotRegistry.deadline,
			jackpotRegistry.paidOut,
			jackpotRegistry.applyTime,
		)
	})
	return jackpotRegistry
}

// RecordApplied counts a successfully applied operation.
func (m *JackpotMetrics) RecordApplied(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op).Inc()
	m.applyTime.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordRejected counts a rejected operation by error kind.
func (m *JackpotMetrics) RecordRejected(op, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.rejections.WithLabelValues(op, kind).Inc()
}

// ObserveRound updates the live round gauges.
func (m *JackpotMetrics) ObserveRound(id uint64, pot, price *big.Int, deadline int64) {
	if m == nil {
		return
	}
	m.round.Set(float64(id))
	m.pot.Set(bigToFloat(pot))
	m.price.Set(bigToFloat(price))
	m.deadline.Set(float64(deadline))
}

// RecordSettlement adds the amounts paid out by a settled round.
func (m *JackpotMetrics) RecordSettlement(charity, winner *big.Int) {
	if m == nil {
		return
	}
	m.paidOut.WithLabelValues("charity").Add(bigToFloat(charity))
	m.paidOut.WithLabelValues("winner").Add(bigToFloat(winner))
}

func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
