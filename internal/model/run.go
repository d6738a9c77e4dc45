package model

import "time"

// RunStatus is the recorded outcome of one answered question.
type RunStatus string

const (
	RunStatusAnswered  RunStatus = "answered"
	RunStatusExhausted RunStatus = "exhausted"
	RunStatusFailed    RunStatus = "failed"
)

// Run is a history record of one question, as persisted by the run store.
type Run struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	Provider     string    `json:"provider"`
	Status       RunStatus `json:"status"`
	FinalSQL     string    `json:"final_sql"`
	Narrative    string    `json:"narrative,omitempty"`
	AttemptsUsed int       `json:"attempts_used"`
	Error        string    `json:"error,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewRun derives a history record from an answer. A nil answer together with
// a non-nil err records a provider or connection failure.
func NewRun(id, question, provider string, res *AnswerResult, err error) Run {
	r := Run{
		ID:        id,
		Question:  question,
		Provider:  provider,
		CreatedAt: time.Now().UTC(),
	}
	switch {
	case err != nil:
		r.Status = RunStatusFailed
		r.Error = err.Error()
	case res == nil:
		r.Status = RunStatusFailed
	case res.Succeeded:
		r.Status = RunStatusAnswered
	default:
		r.Status = RunStatusExhausted
		r.Error = res.LastError
	}
	if res != nil {
		r.FinalSQL = res.FinalSQL
		r.Narrative = res.Narrative
		r.AttemptsUsed = res.AttemptsUsed
		r.DurationMs = res.Duration.Milliseconds()
	}
	return r
}
