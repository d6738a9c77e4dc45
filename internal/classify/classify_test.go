package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/warehouse-agent/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  string
		want model.ErrorKind
	}{
		// Unknown table
		{"duckdb catalog", `Catalog Error: Table with name fct_order does not exist! Did you mean "marts.fct_orders"?`, model.ErrorKindUnknownTable},
		{"generic table", "Table 'bar' does not exist", model.ErrorKindUnknownTable},
		{"sqlite table", "SQL logic error: no such table: orders (1)", model.ErrorKindUnknownTable},
		{"postgres relation", `ERROR: relation "public.orderz" does not exist (SQLSTATE 42P01)`, model.ErrorKindUnknownTable},
		{"duckdb schema", "Catalog Error: Schema with name mart does not exist!", model.ErrorKindUnknownTable},
		{"duckdb referenced table", `Binder Error: Referenced table "o" not found!`, model.ErrorKindUnknownTable},
		{"duckdb referenced table with candidates", "Binder Error: Referenced table \"ord\" not found!\nCandidate tables: \"o\"", model.ErrorKindUnknownTable},
		{"duckdb qualified table", "Catalog Error: Table with name marts.fct_order does not exist!", model.ErrorKindUnknownTable},
		{"mssql object", "mssql: Invalid object name 'dbo.orderz'.", model.ErrorKindUnknownTable},

		// Ambiguous column
		{"duckdb ambiguous", `Binder Error: Ambiguous reference to column name "id"`, model.ErrorKindAmbiguousColumn},
		{"postgres ambiguous", `ERROR: column reference "id" is ambiguous (SQLSTATE 42702)`, model.ErrorKindAmbiguousColumn},
		{"sqlite ambiguous", "ambiguous column name: id", model.ErrorKindAmbiguousColumn},

		// Missing column
		{"generic column", "Column 'foo' not found in table", model.ErrorKindMissingColumn},
		{"duckdb referenced", `Binder Error: Referenced column "revenue" not found in FROM clause!`, model.ErrorKindMissingColumn},
		{"duckdb no column named", `Binder Error: Table "o" does not have a column named "amount"`, model.ErrorKindMissingColumn},
		{"postgres column", `ERROR: column "revenue" does not exist (SQLSTATE 42703)`, model.ErrorKindMissingColumn},
		{"postgres column of relation", `ERROR: column "x" of relation "orders" does not exist`, model.ErrorKindMissingColumn},
		{"sqlite column", "no such column: revenue", model.ErrorKindMissingColumn},
		{"mssql column", "mssql: Invalid column name 'revenue'.", model.ErrorKindMissingColumn},

		// Type mismatch
		{"generic type", "Type mismatch: cannot compare VARCHAR and INTEGER", model.ErrorKindTypeMismatch},
		{"duckdb conversion", "Conversion Error: Could not convert string 'abc' to INT32", model.ErrorKindTypeMismatch},
		{"duckdb no function", "Binder Error: No function matches the given name and argument types 'sum(VARCHAR)'", model.ErrorKindTypeMismatch},
		{"postgres operator", "ERROR: operator does not exist: text = integer (SQLSTATE 42883)", model.ErrorKindTypeMismatch},
		{"postgres input syntax", `ERROR: invalid input syntax for type integer: "abc" (SQLSTATE 22P02)`, model.ErrorKindTypeMismatch},
		{"mssql conversion", "mssql: Conversion failed when converting the varchar value 'x' to data type int.", model.ErrorKindTypeMismatch},

		// Syntax
		{"generic syntax", "Syntax error at position 42", model.ErrorKindSyntaxError},
		{"duckdb parser", `Parser Error: syntax error at or near "FORM"`, model.ErrorKindSyntaxError},
		{"sqlite syntax", `near "FORM": syntax error`, model.ErrorKindSyntaxError},
		{"mssql syntax", "mssql: Incorrect syntax near the keyword 'FROM'.", model.ErrorKindSyntaxError},

		// Unknown
		{"generic", "Something went wrong", model.ErrorKindUnknown},
		{"empty", "", model.ErrorKindUnknown},
		{"function", "Catalog Error: Scalar Function with name yearz does not exist!", model.ErrorKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kind, hint := Classify(tt.msg)
			assert.Equal(t, tt.want, kind, "message %q", tt.msg)
			assert.NotEmpty(t, hint)
			assert.Equal(t, Hint(tt.want), hint)
		})
	}
}

func TestClassify_TableBeforeColumn(t *testing.T) {
	t.Parallel()

	// Matches both a table and a column signature.
	kind, _ := Classify(`Table "x" does not exist; column "y" not found`)
	assert.Equal(t, model.ErrorKindUnknownTable, kind)
}

func TestHintContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind model.ErrorKind
		want []string
	}{
		{model.ErrorKindMissingColumn, []string{"column", "fully qualified"}},
		{model.ErrorKindUnknownTable, []string{"table", "schema"}},
		{model.ErrorKindSyntaxError, []string{"syntax", "parentheses"}},
		{model.ErrorKindTypeMismatch, []string{"cast", "types"}},
		{model.ErrorKindAmbiguousColumn, []string{"ambiguous", "alias"}},
		{model.ErrorKindUnknown, []string{"schema"}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()
			hint := strings.ToLower(Hint(tt.kind))
			for _, w := range tt.want {
				assert.Contains(t, hint, w)
			}
		})
	}
}

func TestHint_EveryKindCovered(t *testing.T) {
	t.Parallel()

	generic := Hint(model.ErrorKindUnknown)
	for _, k := range model.AllErrorKinds() {
		h := Hint(k)
		require.NotEmpty(t, h, k.String())
		if k != model.ErrorKindUnknown {
			assert.NotEqual(t, generic, h, k.String())
		}
	}
	assert.Equal(t, generic, Hint(model.ErrorKind(42)))
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	o := model.Failed("no such column: revenue")
	Outcome(&o)
	assert.Equal(t, model.ErrorKindMissingColumn, o.Failure.Kind)
	assert.Equal(t, Hint(model.ErrorKindMissingColumn), o.Failure.Hint)

	ok := model.Succeeded([]string{"n"}, []model.Row{{"n": 1}})
	Outcome(&ok)
	assert.Nil(t, ok.Failure)

	Outcome(nil)
}
