package model

// ErrorKind classifies an execution failure. The set is closed; AllErrorKinds
// enumerates every value.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindUnknownTable
	ErrorKindAmbiguousColumn
	ErrorKindMissingColumn
	ErrorKindTypeMismatch
	ErrorKindSyntaxError
)

// AllErrorKinds returns every ErrorKind in classification priority order,
// with Unknown last.
func AllErrorKinds() []ErrorKind {
	return []ErrorKind{
		ErrorKindUnknownTable,
		ErrorKindAmbiguousColumn,
		ErrorKindMissingColumn,
		ErrorKindTypeMismatch,
		ErrorKindSyntaxError,
		ErrorKindUnknown,
	}
}

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindUnknownTable:
		return "unknown_table"
	case ErrorKindAmbiguousColumn:
		return "ambiguous_column"
	case ErrorKindMissingColumn:
		return "missing_column"
	case ErrorKindTypeMismatch:
		return "type_mismatch"
	case ErrorKindSyntaxError:
		return "syntax_error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its String form.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the String form of any kind. Unrecognised text
// decodes to ErrorKindUnknown.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	*k = ErrorKindUnknown
	for _, kind := range AllErrorKinds() {
		if kind.String() == string(text) {
			*k = kind
			break
		}
	}
	return nil
}

// QueryAttempt is one SQL statement produced by the completion provider.
// Index 0 is the initial generation; each fix increments it.
type QueryAttempt struct {
	SQL   string `json:"sql"`
	Index int    `json:"index"`
}

// Row is a single result record keyed by column name.
type Row map[string]any

// Failure describes a SQL-semantic execution failure.
type Failure struct {
	RawMessage string    `json:"raw_message"`
	Kind       ErrorKind `json:"kind"`
	Hint       string    `json:"hint"`
}

// ExecutionOutcome is the result of running one QueryAttempt. Failure is nil
// when the statement succeeded.
type ExecutionOutcome struct {
	Columns  []string `json:"columns,omitempty"`
	Rows     []Row    `json:"rows,omitempty"`
	RowCount int      `json:"row_count"`
	Failure  *Failure `json:"failure,omitempty"`
}

// OK reports whether the execution succeeded.
func (o ExecutionOutcome) OK() bool {
	return o.Failure == nil
}

// Succeeded builds a successful outcome.
func Succeeded(columns []string, rows []Row) ExecutionOutcome {
	return ExecutionOutcome{Columns: columns, Rows: rows, RowCount: len(rows)}
}

// Failed builds a failed outcome carrying the engine's raw message. Kind and
// hint are filled in by the classifier.
func Failed(raw string) ExecutionOutcome {
	return ExecutionOutcome{Failure: &Failure{RawMessage: raw, Kind: ErrorKindUnknown}}
}
