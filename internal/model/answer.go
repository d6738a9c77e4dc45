package model

import (
	"encoding/json"
	"time"
)

// AnswerResult is the terminal artifact of one question. When Succeeded is
// false the retry budget was exhausted and LastError holds the engine's final
// message.
type AnswerResult struct {
	Question     string         `json:"question"`
	FinalSQL     string         `json:"final_sql"`
	Columns      []string       `json:"columns,omitempty"`
	Rows         []Row          `json:"rows"`
	Narrative    string         `json:"narrative"`
	AttemptsUsed int            `json:"attempts_used"`
	Attempts     []QueryAttempt `json:"attempts"`
	Succeeded    bool           `json:"succeeded"`
	LastError    string         `json:"last_error,omitempty"`
	LastKind     ErrorKind      `json:"last_kind"`
	Duration     time.Duration  `json:"duration_ns"`
}

// MarshalJSON omits last_kind for answered questions, where LastKind carries
// no meaning.
func (r AnswerResult) MarshalJSON() ([]byte, error) {
	type plain AnswerResult
	out := struct {
		plain
		LastKind *ErrorKind `json:"last_kind,omitempty"`
	}{plain: plain(r)}
	if !r.Succeeded {
		out.LastKind = &r.LastKind
	}
	return json.Marshal(out)
}

// AttemptedSQL returns every SQL string tried, in order.
func (r *AnswerResult) AttemptedSQL() []string {
	out := make([]string, len(r.Attempts))
	for i, a := range r.Attempts {
		out[i] = a.SQL
	}
	return out
}

// FixesUsed returns how many corrective attempts followed the initial one.
func (r *AnswerResult) FixesUsed() int {
	if r.AttemptsUsed == 0 {
		return 0
	}
	return r.AttemptsUsed - 1
}
