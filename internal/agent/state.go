package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/warehouse-agent/internal/classify"
	"github.com/sells-group/warehouse-agent/internal/model"
	"github.com/sells-group/warehouse-agent/internal/sqltext"
)

// State is a position in the answer loop.
type State int

const (
	StateInit State = iota
	StateGenerating
	StateExecuting
	StateClassifying
	StateFixing
	StateSucceeded
	StateExhausted
	StateSummarizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateGenerating:
		return "generating"
	case StateExecuting:
		return "executing"
	case StateClassifying:
		return "classifying"
	case StateFixing:
		return "fixing"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateSummarizing:
		return "summarizing"
	case StateDone:
		return "done"
	default:
		return "invalid"
	}
}

// emptyStatement is the failure recorded when the provider returned no SQL.
const emptyStatement = "empty SQL statement: the response contained no query"

// run is the per-question working set threaded through step.
type run struct {
	state    State
	question string
	start    time.Time

	system    string
	attempts  []model.QueryAttempt
	outcome   model.ExecutionOutcome
	succeeded bool
	narrative string
}

func newRun(question string) *run {
	return &run{state: StateInit, question: question, start: time.Now()}
}

func (r *run) push(sql string) {
	r.attempts = append(r.attempts, model.QueryAttempt{SQL: sql, Index: len(r.attempts)})
}

func (r *run) current() model.QueryAttempt {
	if len(r.attempts) == 0 {
		return model.QueryAttempt{}
	}
	return r.attempts[len(r.attempts)-1]
}

func (r *run) fixesUsed() int {
	if len(r.attempts) == 0 {
		return 0
	}
	return len(r.attempts) - 1
}

func (r *run) result() *model.AnswerResult {
	res := &model.AnswerResult{
		Question:     r.question,
		FinalSQL:     r.current().SQL,
		Narrative:    r.narrative,
		AttemptsUsed: len(r.attempts),
		Attempts:     r.attempts,
		Succeeded:    r.succeeded,
		Duration:     time.Since(r.start),
	}
	if r.succeeded {
		res.Columns = r.outcome.Columns
		res.Rows = r.outcome.Rows
	} else if f := r.outcome.Failure; f != nil {
		res.LastError = f.RawMessage
		res.LastKind = f.Kind
	}
	if res.Rows == nil {
		res.Rows = []model.Row{}
	}
	return res
}

// step performs the work of r.state and returns the next state.
func (a *Agent) step(ctx context.Context, r *run) (State, error) {
	switch r.state {
	case StateInit:
		summary, err := a.catalog.Summary(ctx, a.schemas)
		if err != nil {
			return r.state, err
		}
		r.system = SystemPrompt(summary, a.dialect)
		return StateGenerating, nil

	case StateGenerating:
		text, err := a.complete(ctx, "generate", r.system, r.question)
		if err != nil {
			return r.state, err
		}
		r.push(sqltext.Normalize(text))
		return StateExecuting, nil

	case StateExecuting:
		sql := r.current().SQL
		if sql == "" {
			r.outcome = model.Failed(emptyStatement)
			return StateClassifying, nil
		}
		outcome, err := a.executor.Run(ctx, sql)
		if err != nil {
			return r.state, err
		}
		r.outcome = outcome
		if outcome.OK() {
			a.recorder.ObserveExecution(true, "")
			return StateSucceeded, nil
		}
		return StateClassifying, nil

	case StateClassifying:
		classify.Outcome(&r.outcome)
		f := r.outcome.Failure
		a.recorder.ObserveExecution(false, f.Kind.String())
		a.log.Warn("agent: attempt failed",
			zap.Int("attempt", r.current().Index),
			zap.String("kind", f.Kind.String()),
			zap.String("error", f.RawMessage),
		)
		if r.fixesUsed() < a.budget {
			return StateFixing, nil
		}
		return StateExhausted, nil

	case StateFixing:
		prompt := FixPrompt(r.question, r.current().SQL, *r.outcome.Failure)
		text, err := a.complete(ctx, "fix", r.system, prompt)
		if err != nil {
			return r.state, err
		}
		r.push(sqltext.Normalize(text))
		return StateExecuting, nil

	case StateSucceeded:
		r.succeeded = true
		if a.skipSummary {
			return StateDone, nil
		}
		return StateSummarizing, nil

	case StateSummarizing:
		if r.outcome.RowCount == 0 && len(r.outcome.Rows) == 0 {
			r.narrative = NoResultsNarrative
			return StateDone, nil
		}
		prompt := SummaryPrompt(r.question, r.current().SQL, r.outcome.Columns, r.outcome.Rows, a.summaryRows)
		text, err := a.complete(ctx, "summarize", summarySystemPrompt, prompt)
		if err != nil {
			return r.state, err
		}
		r.narrative = text
		return StateDone, nil

	case StateExhausted:
		return StateDone, nil
	}
	return StateDone, nil
}
