// Package classify maps raw SQL engine failures to a fixed set of error kinds
// and the corrective hint handed back to the language model.
package classify

import (
	"regexp"
	"strings"

	"github.com/sells-group/warehouse-agent/internal/model"
)

// rule binds an error kind to the message signatures that identify it.
type rule struct {
	kind     model.ErrorKind
	patterns []*regexp.Regexp
}

// rules are evaluated top to bottom and the first match wins. Table
// signatures come before column signatures because an unresolved table often
// surfaces as an unresolved column too. Ambiguity precedes missing columns
// since both mention "column". Type signatures precede syntax signatures
// because postgres reports bad literals as "invalid input syntax for type".
var rules = []rule{
	{
		kind: model.ErrorKindUnknownTable,
		patterns: compile(
			`\btable\b[^.!]*\bdoes not exist`,
			`table with name \S+ does not exist`,
			`referenced table\b.*\bnot found`,
			`no such table`,
			`(^|error:\s*)relation\s+"[^"]+"\s+does not exist`,
			`\bschema\b[^.!]*\bdoes not exist`,
			`invalid object name`,
			`unknown table`,
			`sqlstate 42p01`,
			`sqlstate 3f000`,
		),
	},
	{
		kind: model.ErrorKindAmbiguousColumn,
		patterns: compile(
			`ambiguous`,
			`sqlstate 42702`,
		),
	},
	{
		kind: model.ErrorKindMissingColumn,
		patterns: compile(
			`\bcolumn\b.*\bnot found`,
			`no such column`,
			`\bcolumn\b.*\bdoes not exist`,
			`does not have a column`,
			`invalid column name`,
			`unknown column`,
			`sqlstate 42703`,
		),
	},
	{
		kind: model.ErrorKindTypeMismatch,
		patterns: compile(
			`type mismatch`,
			`datatype mismatch`,
			`cannot compare`,
			`could not convert`,
			`conversion (error|failed)`,
			`no function matches`,
			`operator does not exist`,
			`invalid input syntax for type`,
			`cannot (be )?cast`,
			`sqlstate (42804|42883|22p02)`,
		),
	},
	{
		kind: model.ErrorKindSyntaxError,
		patterns: compile(
			`syntax error`,
			`parser error`,
			`incorrect syntax`,
			`sqlstate 42601`,
		),
	},
}

var hints = map[model.ErrorKind]string{
	model.ErrorKindUnknownTable:    "Check table name spelling and schema qualification: use only tables listed in the schema summary, written as schema_name.table_name.",
	model.ErrorKindAmbiguousColumn: "A column reference is ambiguous: give every table an alias and prefix each column with its table alias.",
	model.ErrorKindMissingColumn:   "Verify column names against the schema and use fully qualified references (alias.column_name); only columns listed in the schema summary exist.",
	model.ErrorKindTypeMismatch:    "Cast operands to compatible types before comparing or aggregating, for example CAST(x AS DATE) or CAST(x AS DOUBLE).",
	model.ErrorKindSyntaxError:     "Syntax error: check for balanced parentheses and correct clause ordering (SELECT, FROM, WHERE, GROUP BY, HAVING, ORDER BY, LIMIT).",
	model.ErrorKindUnknown:         "Re-examine the statement against the schema summary: confirm every table and column exists and the SQL is valid for this database.",
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// Classify returns the error kind and corrective hint for a raw engine
// message. Messages matching no signature are ErrorKindUnknown.
func Classify(msg string) (model.ErrorKind, string) {
	text := strings.TrimSpace(msg)
	for _, r := range rules {
		for _, p := range r.patterns {
			if p.MatchString(text) {
				return r.kind, Hint(r.kind)
			}
		}
	}
	return model.ErrorKindUnknown, Hint(model.ErrorKindUnknown)
}

// Hint returns the canned hint for kind. Kinds outside the enumeration get
// the generic hint.
func Hint(kind model.ErrorKind) string {
	if h, ok := hints[kind]; ok {
		return h
	}
	return hints[model.ErrorKindUnknown]
}

// Outcome fills in the kind and hint of a failed execution outcome in place.
// Successful outcomes are left untouched.
func Outcome(o *model.ExecutionOutcome) {
	if o == nil || o.Failure == nil {
		return
	}
	o.Failure.Kind, o.Failure.Hint = Classify(o.Failure.RawMessage)
}
