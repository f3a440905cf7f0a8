package agent

import "github.com/prometheus/client_golang/prometheus"

// Metrics 统计循环运行情况；nil 时所有方法都是空操作。
type Metrics struct {
	runs        *prometheus.CounterVec
	iterations  prometheus.Histogram
	toolCalls   *prometheus.CounterVec
	modelErrors prometheus.Counter
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_agent_runs_total",
				Help: "Total number of agent loop runs by outcome",
			},
			[]string{"outcome"},
		),
		iterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finsight_agent_iterations",
				Help:    "Number of model invocations per agent loop run",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 12, 16},
			},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_agent_tool_calls_total",
				Help: "Total number of tool calls by tool name and status",
			},
			[]string{"tool", "status"},
		),
		modelErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "finsight_agent_model_errors_total",
				Help: "Total number of failed model invocation attempts",
			},
		),
	}

	registry.MustRegister(m.runs, m.iterations, m.toolCalls, m.modelErrors)
	return m
}

func (m *Metrics) observeRun(outcome string, iterations int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.iterations.Observe(float64(iterations))
}

func (m *Metrics) observeTool(name string, isError bool) {
	if m == nil {
		return
	}
	status := "ok"
	if isError {
		status = "error"
	}
	m.toolCalls.WithLabelValues(name, status).Inc()
}

func (m *Metrics) observeModelError() {
	if m != nil {
		m.modelErrors.Inc()
	}
}
