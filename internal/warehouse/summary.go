package warehouse

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/warehouse-agent/internal/model"
)

// systemSchemas are never shown to the model.
var systemSchemas = map[string]bool{
	"information_schema": true,
	"pg_catalog":         true,
	"pg_toast":           true,
	"sys":                true,
}

func isSystemSchema(name string) bool {
	lower := strings.ToLower(name)
	return systemSchemas[lower] || strings.HasPrefix(lower, "pg_temp_") || strings.HasPrefix(lower, "pg_toast_temp_")
}

// unknownRowCount marks a table whose COUNT(*) failed.
const unknownRowCount = -1

// introspector is the engine-specific half of a Catalog. Returned errors are
// already marked with ErrConnection where appropriate.
type introspector interface {
	listSchemas(ctx context.Context) ([]string, error)
	listTables(ctx context.Context, schema string) ([]string, error)
	listColumns(ctx context.Context, schema, table string) ([]model.Column, error)
	countRows(ctx context.Context, schema, table string) (int64, error)
}

func userSchemas(ctx context.Context, in introspector) ([]string, error) {
	all, err := in.listSchemas(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, s := range all {
		if !isSystemSchema(s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

// buildSummary walks the requested schemas and renders the result. A table
// whose row count cannot be read is kept with an unknown count unless the
// connection itself failed.
func buildSummary(ctx context.Context, in introspector, schemas []string) (model.SchemaSummary, error) {
	if len(schemas) == 0 {
		var err error
		if schemas, err = userSchemas(ctx, in); err != nil {
			return model.SchemaSummary{}, err
		}
	}

	var tables []model.Table
	for _, schema := range schemas {
		names, err := in.listTables(ctx, schema)
		if err != nil {
			return model.SchemaSummary{}, err
		}
		for _, name := range names {
			cols, err := in.listColumns(ctx, schema, name)
			if err != nil {
				return model.SchemaSummary{}, err
			}
			count, err := in.countRows(ctx, schema, name)
			if err != nil {
				if isConnection(err) {
					return model.SchemaSummary{}, err
				}
				zap.L().Warn("warehouse: row count unavailable",
					zap.String("table", schema+"."+name),
					zap.Error(err),
				)
				count = unknownRowCount
			}
			tables = append(tables, model.Table{
				Schema:   schema,
				Name:     name,
				Kind:     model.InferTableKind(name),
				RowCount: count,
				Columns:  cols,
			})
		}
	}

	return model.NewSchemaSummary(RenderSummary(tables), tables), nil
}

func isConnection(err error) bool {
	return errors.Is(err, ErrConnection) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

var printer = message.NewPrinter(language.English)

// RenderSummary formats tables as the plain-text catalog handed to the model.
// Tables are grouped by schema in the order given.
func RenderSummary(tables []model.Table) string {
	var b strings.Builder
	b.WriteString("DATABASE SCHEMA:\n")

	if len(tables) == 0 {
		b.WriteString("\n(no tables found)\n")
		return b.String()
	}

	current := ""
	for i, t := range tables {
		if i == 0 || t.Schema != current {
			current = t.Schema
			b.WriteString("\nSchema: ")
			b.WriteString(current)
			b.WriteString("\n")
			b.WriteString(strings.Repeat("-", 40))
			b.WriteString("\n")
		}

		b.WriteString("\n")
		b.WriteString(t.FullName())
		if t.RowCount == unknownRowCount {
			b.WriteString(" (row count unavailable)")
		} else {
			b.WriteString(printer.Sprintf(" (%d rows)", t.RowCount))
		}
		if t.Kind != model.TableKindUnknown {
			b.WriteString(" [")
			b.WriteString(string(t.Kind))
			b.WriteString("]")
		}
		b.WriteString("\n")
		for _, c := range t.Columns {
			b.WriteString("  - ")
			b.WriteString(c.Name)
			b.WriteString(": ")
			b.WriteString(c.Type)
			b.WriteString("\n")
		}
	}
	return b.String()
}
