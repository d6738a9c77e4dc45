package warehouse

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/sells-group/warehouse-agent/internal/model"
)

// uniqueColumns suffixes repeated result column names so that every value
// keeps its own key in a model.Row.
func uniqueColumns(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]int, len(names))
	for i, n := range names {
		seen[n]++
		if seen[n] == 1 {
			out[i] = n
			continue
		}
		out[i] = n + "_" + strconv.Itoa(seen[n])
	}
	return out
}

func toRow(columns []string, values []any) model.Row {
	row := make(model.Row, len(columns))
	for i, c := range columns {
		row[c] = normalizeValue(values[i])
	}
	return row
}

func normalizeValue(v any) any {
	switch typed := v.(type) {
	case []byte:
		return string(typed)
	case [16]byte:
		return uuid.UUID(typed).String()
	default:
		return typed
	}
}
