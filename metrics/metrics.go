// Package metrics defines the Prometheus metrics for the calculators, the
// save path and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Calculations      *prometheus.CounterVec // by tool
	GuardStatus       *prometheus.CounterVec // by overall risk guard status
	CalculationSaves  *prometheus.CounterVec // by result: ok, error
	HTTPRequests      *prometheus.CounterVec // by route and status code
	HTTPRequestLength *prometheus.HistogramVec
}

// New creates and registers the metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on registerer so tests can use an
// isolated registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Calculations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fxf_calculations_total",
			Help: "Total number of calculator evaluations",
		}, []string{"tool"}),
		GuardStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fxf_risk_guard_status_total",
			Help: "Risk guard evaluations by overall status",
		}, []string{"status"}),
		CalculationSaves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fxf_calculation_saves_total",
			Help: "Saved calculations by result",
		}, []string{"result"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fxf_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestLength: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fxf_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Calculation counts one evaluation of tool. A nil receiver is a no-op,
// as are the other recorders.
func (m *Metrics) Calculation(tool string) {
	if m == nil {
		return
	}
	m.Calculations.WithLabelValues(tool).Inc()
}

func (m *Metrics) Guard(status string) {
	if m == nil {
		return
	}
	m.GuardStatus.WithLabelValues(status).Inc()
}

func (m *Metrics) Save(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CalculationSaves.WithLabelValues(result).Inc()
}
