package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 汇总执行器对外操作、平台请求和熔断器状态。
type Metrics struct {
	operations *prometheus.CounterVec
	requests   *prometheus.CounterVec
	breaker    *prometheus.GaugeVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_operations_total",
		Help: "Total executor operations by operation and outcome.",
	}, []string{"operation", "outcome"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_platform_requests_total",
		Help: "Total platform API requests by method and result.",
	}, []string{"method", "result"})
	breaker := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "executor_circuit_breaker_state",
		Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
	}, []string{"name"})

	return &Metrics{
		operations: registerCollector(registerer, operations),
		requests:   registerCollector(registerer, requests),
		breaker:    registerCollector(registerer, breaker),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) IncOperation(operation, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) IncRequest(method, result string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(method, result).Inc()
}

func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil || m.breaker == nil {
		return
	}
	m.breaker.WithLabelValues(name).Set(state)
}

func registerCollector[C prometheus.Collector](registerer prometheus.Registerer, c C) C {
	if err := registerer.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
