package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/sells-group/warehouse-agent/internal/agent"
	"github.com/sells-group/warehouse-agent/internal/model"
)

// tableRowLimit caps the rows printed when no narrative was requested.
const tableRowLimit = 50

func sqlBlock(sql string) string {
	return "```sql\n" + sql + "\n```"
}

// formatAnswer renders a finished answer for the terminal.
func formatAnswer(res *model.AnswerResult) string {
	if !res.Succeeded {
		return formatExhausted(res)
	}
	if len(res.Rows) == 0 {
		return agent.NoResultsNarrative + "\n\nSQL:\n" + sqlBlock(res.FinalSQL)
	}

	body := res.Narrative
	if body == "" {
		body = formatTable(res.Columns, res.Rows)
	}
	return body + "\n\n---\n*SQL used:*\n" + sqlBlock(res.FinalSQL)
}

func formatExhausted(res *model.AnswerResult) string {
	var b strings.Builder
	b.WriteString("I tried this SQL:\n")
	b.WriteString(sqlBlock(res.FinalSQL))
	b.WriteString("\n\nBut got an error: ")
	b.WriteString(res.LastError)

	if len(res.Attempts) > 1 {
		fmt.Fprintf(&b, "\n\nGave up after %d attempts. Earlier queries:\n", res.AttemptsUsed)
		for _, a := range res.Attempts[:len(res.Attempts)-1] {
			fmt.Fprintf(&b, "\n%d.\n%s\n", a.Index+1, sqlBlock(a.SQL))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatTable renders rows as a plain table, truncated to tableRowLimit.
func formatTable(columns []string, rows []model.Row) string {
	shown := rows
	if len(shown) > tableRowLimit {
		shown = shown[:tableRowLimit]
	}

	data := pterm.TableData{columns}
	for _, r := range shown {
		line := make([]string, len(columns))
		for i, c := range columns {
			if v := r[c]; v != nil {
				line[i] = fmt.Sprint(v)
			}
		}
		data = append(data, line)
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Sprintf("%d rows", len(rows))
	}
	if len(shown) < len(rows) {
		out += fmt.Sprintf("\n(%d of %d rows shown)", len(shown), len(rows))
	}
	return out
}
