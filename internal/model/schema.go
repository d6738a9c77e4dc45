package model

import "strings"

// TableKind is a naming-convention guess at a table's role in a star schema.
type TableKind string

const (
	TableKindFact      TableKind = "fact"
	TableKindDimension TableKind = "dimension"
	TableKindUnknown   TableKind = ""
)

var (
	factPrefixes      = []string{"fct_", "fact_"}
	dimensionPrefixes = []string{"dim_", "dimension_"}
)

// InferTableKind guesses a table's kind from its name only. Nothing about the
// table's contents is consulted.
func InferTableKind(name string) TableKind {
	lower := strings.ToLower(name)
	for _, p := range factPrefixes {
		if strings.HasPrefix(lower, p) {
			return TableKindFact
		}
	}
	for _, p := range dimensionPrefixes {
		if strings.HasPrefix(lower, p) {
			return TableKindDimension
		}
	}
	return TableKindUnknown
}

// Column is a single column discovered in the catalog.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is a table or view discovered in the catalog.
type Table struct {
	Schema   string    `json:"schema"`
	Name     string    `json:"name"`
	Kind     TableKind `json:"kind,omitempty"`
	RowCount int64     `json:"row_count"`
	Columns  []Column  `json:"columns"`
}

// FullName returns the schema-qualified table name.
func (t Table) FullName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// SchemaSummary is the rendered catalog handed to the language model. It is
// built once per question and has no mutators.
type SchemaSummary struct {
	text   string
	tables []Table
}

// NewSchemaSummary freezes the rendered text together with the tables it was
// rendered from. The table slice is copied.
func NewSchemaSummary(text string, tables []Table) SchemaSummary {
	cp := make([]Table, len(tables))
	for i, t := range tables {
		cols := make([]Column, len(t.Columns))
		copy(cols, t.Columns)
		t.Columns = cols
		cp[i] = t
	}
	return SchemaSummary{text: text, tables: cp}
}

// String returns the rendered summary text.
func (s SchemaSummary) String() string {
	return s.text
}

// Tables returns a copy of the discovered tables.
func (s SchemaSummary) Tables() []Table {
	out := make([]Table, len(s.tables))
	copy(out, s.tables)
	return out
}

// Empty reports whether no tables were discovered.
func (s SchemaSummary) Empty() bool {
	return len(s.tables) == 0
}
