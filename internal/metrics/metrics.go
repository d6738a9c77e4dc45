// Package metrics exposes prometheus instrumentation for the question loop
// and the completion providers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Recorder owns the agent's collectors. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	answersTotal       *prometheus.CounterVec
	answerDuration     prometheus.Histogram
	attemptsPerAnswer  prometheus.Histogram
	executionsTotal    *prometheus.CounterVec
	errorKindsTotal    *prometheus.CounterVec
	completionsTotal   *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	tokensTotal        *prometheus.CounterVec
	costUSDTotal       *prometheus.CounterVec
}

// NewRecorder creates a Recorder registered on a fresh registry that also
// carries the Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		answersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_agent_answers_total",
				Help: "Questions processed, by outcome.",
			},
			[]string{"outcome"},
		),
		answerDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "warehouse_agent_answer_duration_seconds",
				Help:    "End-to-end latency of a question.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
		),
		attemptsPerAnswer: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "warehouse_agent_attempts_per_answer",
				Help:    "SQL executions needed per question.",
				Buckets: []float64{1, 2, 3, 4, 5, 6},
			},
		),
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_agent_sql_executions_total",
				Help: "SQL executions against the warehouse, by result.",
			},
			[]string{"result"},
		),
		errorKindsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_agent_sql_errors_total",
				Help: "Classified SQL failures, by error kind.",
			},
			[]string{"kind"},
		),
		completionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_agent_completions_total",
				Help: "Completion provider calls, by provider, phase and result.",
			},
			[]string{"provider", "phase", "result"},
		),
		completionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warehouse_agent_completion_duration_seconds",
				Help:    "Completion provider latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "phase"},
		),
		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_agent_llm_tokens_total",
				Help: "Tokens consumed, by provider and direction.",
			},
			[]string{"provider", "direction"},
		),
		costUSDTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_agent_llm_cost_usd_total",
				Help: "Estimated provider spend in USD.",
			},
			[]string{"provider"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.answersTotal,
		r.answerDuration,
		r.attemptsPerAnswer,
		r.executionsTotal,
		r.errorKindsTotal,
		r.completionsTotal,
		r.completionDuration,
		r.tokensTotal,
		r.costUSDTotal,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveAnswer records a finished question. outcome is "answered",
// "exhausted" or "failed".
func (r *Recorder) ObserveAnswer(outcome string, attempts int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.answersTotal.WithLabelValues(outcome).Inc()
	r.answerDuration.Observe(elapsed.Seconds())
	if attempts > 0 {
		r.attemptsPerAnswer.Observe(float64(attempts))
	}
}

// ObserveExecution records one SQL execution. kind is empty on success.
func (r *Recorder) ObserveExecution(ok bool, kind string) {
	if r == nil {
		return
	}
	if ok {
		r.executionsTotal.WithLabelValues("ok").Inc()
		return
	}
	r.executionsTotal.WithLabelValues("failed").Inc()
	r.errorKindsTotal.WithLabelValues(kind).Inc()
}

// ObserveCompletion records one provider call.
func (r *Recorder) ObserveCompletion(provider, phase string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.completionsTotal.WithLabelValues(provider, phase, result).Inc()
	r.completionDuration.WithLabelValues(provider, phase).Observe(elapsed.Seconds())
}

// AddUsage records token consumption and estimated spend.
func (r *Recorder) AddUsage(provider string, input, output int, costUSD float64) {
	if r == nil {
		return
	}
	if input > 0 {
		r.tokensTotal.WithLabelValues(provider, "input").Add(float64(input))
	}
	if output > 0 {
		r.tokensTotal.WithLabelValues(provider, "output").Add(float64(output))
	}
	if costUSD > 0 {
		r.costUSDTotal.WithLabelValues(provider).Add(costUSD)
	}
}
