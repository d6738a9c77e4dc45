package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/warehouse-agent/internal/model"
)

// NoResultsNarrative is returned instead of a summary when the final query
// produced no rows.
const NoResultsNarrative = "Query executed but returned no results."

// summarySystemPrompt is the system instruction of the summarization call.
const summarySystemPrompt = "You are a helpful data analyst."

const systemPromptTemplate = `You are a data analyst assistant. You help users query a data warehouse by converting their questions into SQL.

%s

INSTRUCTIONS:
1. Analyze the schema to understand what data is available
2. Write a %s query to answer the user's question
3. Always qualify table names with schema (e.g., schema_name.table_name)
4. Return ONLY the SQL query, no explanation, no markdown code blocks
5. If you can't answer with the available data, say so

TIPS:
- Infer meaning from table and column names
- Tables with "fact" or transaction data typically have metrics to aggregate
- Tables with "dim" or entity data are usually for grouping/filtering
- Use JOINs when combining data from multiple tables
`

const fixPromptTemplate = "The SQL query you generated failed with this error:\n\n" +
	"Error: %s\n\n" +
	"%s\n\n" +
	"Original question: %s\n\n" +
	"Failed SQL:\n```sql\n%s\n```\n\n" +
	"Please fix the SQL query. Return ONLY the corrected SQL, no explanation."

const summaryPromptTemplate = "The user asked: %q\n\n" +
	"I ran this SQL:\n```sql\n%s\n```\n\n" +
	"Results (%s):\n%s\n\n" +
	"Please provide a clear, concise answer to the user's question based on these results. " +
	"Include key numbers and insights. If the data shows interesting patterns, mention them."

var dialectNames = map[string]string{
	"duckdb":    "DuckDB SQL",
	"postgres":  "PostgreSQL",
	"sqlite":    "SQLite SQL",
	"sqlserver": "T-SQL (SQL Server)",
}

// SystemPrompt embeds the schema summary in the generation instructions.
// dialect is a warehouse driver name; unknown or empty dialects get plain
// "SQL".
func SystemPrompt(summary model.SchemaSummary, dialect string) string {
	lang, ok := dialectNames[dialect]
	if !ok {
		lang = "SQL"
	}
	return fmt.Sprintf(systemPromptTemplate, strings.TrimRight(summary.String(), "\n"), lang)
}

// FixPrompt asks for a corrected statement after a failed execution.
func FixPrompt(question, sql string, failure model.Failure) string {
	return fmt.Sprintf(fixPromptTemplate, failure.RawMessage, failure.Hint, question, sql)
}

// SummaryPrompt asks for a narrative over at most maxRows result rows.
func SummaryPrompt(question, sql string, columns []string, rows []model.Row, maxRows int) string {
	shown := rows
	if len(shown) > maxRows {
		shown = shown[:maxRows]
	}
	label := fmt.Sprintf("%d rows", len(rows))
	if len(shown) < len(rows) {
		label = fmt.Sprintf("showing %d of %d rows", len(shown), len(rows))
	}
	return fmt.Sprintf(summaryPromptTemplate, question, sql, label, RenderRows(columns, shown))
}

// RenderRows renders rows as an indented JSON array whose objects keep the
// result's column order. Values that cannot be encoded fall back to their
// string form.
func RenderRows(columns []string, rows []model.Row) string {
	if len(rows) == 0 {
		return "[]"
	}
	if len(columns) == 0 {
		columns = sortedKeys(rows[0])
	}

	var b bytes.Buffer
	b.WriteString("[\n")
	for i, row := range rows {
		b.WriteString("  {\n")
		for j, c := range columns {
			key, _ := json.Marshal(c)
			b.WriteString("    ")
			b.Write(key)
			b.WriteString(": ")
			b.Write(encodeValue(row[c]))
			if j < len(columns)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString("  }")
		if i < len(rows)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("]")
	return b.String()
}

func encodeValue(v any) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		out, _ = json.Marshal(fmt.Sprint(v))
	}
	return out
}

func sortedKeys(row model.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
