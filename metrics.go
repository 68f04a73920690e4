package cqlmcp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for tool calls and statement execution.
// A nil *Metrics records nothing.
type Metrics struct {
	ToolCalls         *prometheus.CounterVec
	ToolErrors        *prometheus.CounterVec
	StatementDuration *prometheus.HistogramVec
	InFlight          prometheus.Gauge
}

// NewMetrics creates metrics registered with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cqlmcp_tool_calls_total",
			Help: "Total number of tool invocations",
		},
			[]string{"tool"},
		),
		ToolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cqlmcp_tool_errors_total",
			Help: "Total number of tool invocations that returned an error envelope",
		},
			[]string{"tool", "kind"},
		),
		StatementDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cqlmcp_statement_duration_seconds",
			Help:    "Time spent executing CQL statements",
			Buckets: prometheus.DefBuckets,
		},
			[]string{"op"},
		),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cqlmcp_statements_in_flight",
			Help: "Number of statements currently executing",
		}),
	}
}

func (m *Metrics) observeCall(tool string, err error) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool).Inc()
	if err != nil {
		m.ToolErrors.WithLabelValues(tool, errorKind(err)).Inc()
	}
}

func (m *Metrics) observeStatement(op string, start time.Time) {
	if m == nil {
		return
	}
	m.StatementDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) inFlight(delta float64) {
	if m == nil {
		return
	}
	m.InFlight.Add(delta)
}
