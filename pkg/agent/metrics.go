package agent

import (
	"context"
	"time"

	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors shared by every instrumented agent.
type Metrics struct {
	Runs      *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	ToolCalls *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentry_agent_runs_total",
				Help: "Total number of agent runs",
			},
			[]string{"agent", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentry_agent_run_duration_seconds",
				Help:    "Duration of agent runs in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"agent"},
		),
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentry_tool_calls_total",
				Help: "Total number of tool calls dispatched by agents",
			},
			[]string{"agent", "tool", "status"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Runs, m.Duration, m.ToolCalls)
	}

	return m
}

func (m *Metrics) observeTool(agentName, tool string, failed bool) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(agentName, tool, status(failed)).Inc()
}

// Instrument returns a Middleware recording run count, outcome and duration
// for the named agent.
func Instrument(m *Metrics, name string) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (message.Message, error) {
			start := time.Now()

			msg, err := next.Run(ctx)

			m.Duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			m.Runs.WithLabelValues(name, status(err != nil)).Inc()

			return msg, err
		})
	}
}

func status(failed bool) string {
	if failed {
		return "error"
	}
	return "success"
}
