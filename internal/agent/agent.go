// Package agent answers natural-language questions against a warehouse. It
// generates SQL with a completion provider, executes it, repairs failed
// statements within a fixed budget, and narrates the successful result.
package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/warehouse-agent/internal/llm"
	"github.com/sells-group/warehouse-agent/internal/metrics"
	"github.com/sells-group/warehouse-agent/internal/model"
	"github.com/sells-group/warehouse-agent/internal/warehouse"
)

const (
	// DefaultRetryBudget is the number of corrective attempts after the first.
	DefaultRetryBudget = 2
	// DefaultMaxSummaryRows caps the rows shown to the summarizer.
	DefaultMaxSummaryRows = 20
)

// Agent owns one question at a time; it holds no per-question state between
// calls and is safe to reuse sequentially.
type Agent struct {
	catalog   warehouse.Catalog
	completer llm.Completer
	executor  warehouse.Executor

	budget      int
	schemas     []string
	summaryRows int
	skipSummary bool
	dialect     string
	recorder    *metrics.Recorder
	log         *zap.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithRetryBudget sets how many corrective attempts follow a failed execution.
// Negative values are treated as zero.
func WithRetryBudget(n int) Option {
	return func(a *Agent) {
		if n < 0 {
			n = 0
		}
		a.budget = n
	}
}

// WithSchemas restricts catalog discovery to the named schemas.
func WithSchemas(schemas []string) Option {
	return func(a *Agent) { a.schemas = schemas }
}

// WithMaxSummaryRows caps the result sample handed to the summarizer.
func WithMaxSummaryRows(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.summaryRows = n
		}
	}
}

// WithSkipSummary disables the narrative call.
func WithSkipSummary() Option {
	return func(a *Agent) { a.skipSummary = true }
}

// WithDialect names the warehouse driver so the generation prompt asks for
// the matching SQL flavor.
func WithDialect(driver string) Option {
	return func(a *Agent) { a.dialect = driver }
}

// WithMetrics records executions, completions and answers.
func WithMetrics(r *metrics.Recorder) Option {
	return func(a *Agent) { a.recorder = r }
}

// WithLogger overrides the global zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) { a.log = l }
}

// New wires an Agent over its three collaborators.
func New(catalog warehouse.Catalog, completer llm.Completer, executor warehouse.Executor, opts ...Option) *Agent {
	a := &Agent{
		catalog:     catalog,
		completer:   completer,
		executor:    executor,
		budget:      DefaultRetryBudget,
		summaryRows: DefaultMaxSummaryRows,
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = zap.L()
	}
	return a
}

// RetryBudget returns the configured number of fixes.
func (a *Agent) RetryBudget() int { return a.budget }

// Answer runs the full loop for one question. A nil error with
// Succeeded=false means every attempt failed; catalog, connection and
// provider faults are returned as errors.
func (a *Agent) Answer(ctx context.Context, question string) (*model.AnswerResult, error) {
	r := newRun(question)
	for r.state != StateDone {
		next, err := a.step(ctx, r)
		if err != nil {
			a.recorder.ObserveAnswer(string(model.RunStatusFailed), len(r.attempts), time.Since(r.start))
			a.log.Debug("agent: run failed",
				zap.Stringer("state", r.state),
				zap.Int("attempts", len(r.attempts)),
				zap.Error(err),
			)
			return nil, err
		}
		a.log.Debug("agent: transition",
			zap.Stringer("from", r.state),
			zap.Stringer("to", next),
			zap.Int("attempts", len(r.attempts)),
		)
		r.state = next
	}

	res := r.result()
	outcome := model.RunStatusAnswered
	if !res.Succeeded {
		outcome = model.RunStatusExhausted
	}
	a.recorder.ObserveAnswer(string(outcome), res.AttemptsUsed, res.Duration)
	return res, nil
}

// GenerateSQL produces the normalized first-attempt SQL without executing it.
func (a *Agent) GenerateSQL(ctx context.Context, question string) (string, error) {
	r := newRun(question)
	for r.state != StateExecuting {
		next, err := a.step(ctx, r)
		if err != nil {
			return "", err
		}
		r.state = next
	}
	return r.current().SQL, nil
}

// Schema returns the catalog summary the agent prompts with.
func (a *Agent) Schema(ctx context.Context) (model.SchemaSummary, error) {
	return a.catalog.Summary(ctx, a.schemas)
}

// complete calls the provider and records the phase. Provider errors are
// returned unchanged so callers can test them against llm.ErrProvider.
func (a *Agent) complete(ctx context.Context, phase, system, user string) (string, error) {
	start := time.Now()
	text, err := a.completer.Complete(ctx, system, user)
	a.recorder.ObserveCompletion(a.completer.Name(), phase, err, time.Since(start))
	if err != nil {
		a.log.Warn("agent: completion failed", zap.String("phase", phase), zap.Error(err))
		return "", err
	}
	return text, nil
}
