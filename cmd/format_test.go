package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/warehouse-agent/internal/model"
)

func TestFormatAnswer_Narrative(t *testing.T) {
	res := &model.AnswerResult{
		FinalSQL:  "SELECT SUM(total_amount) FROM marts.fct_orders",
		Rows:      []model.Row{{"sum": 10}},
		Columns:   []string{"sum"},
		Narrative: "Revenue was 10.",
		Succeeded: true,
	}
	want := "Revenue was 10.\n\n---\n*SQL used:*\n```sql\nSELECT SUM(total_amount) FROM marts.fct_orders\n```"
	assert.Equal(t, want, formatAnswer(res))
}

func TestFormatAnswer_NoRows(t *testing.T) {
	res := &model.AnswerResult{FinalSQL: "SELECT 1 WHERE false", Rows: []model.Row{}, Succeeded: true}
	want := "Query executed but returned no results.\n\nSQL:\n```sql\nSELECT 1 WHERE false\n```"
	assert.Equal(t, want, formatAnswer(res))
}

func TestFormatAnswer_Exhausted(t *testing.T) {
	res := &model.AnswerResult{
		FinalSQL:     "SELECT 3",
		AttemptsUsed: 3,
		Attempts: []model.QueryAttempt{
			{SQL: "SELECT 1", Index: 0},
			{SQL: "SELECT 2", Index: 1},
			{SQL: "SELECT 3", Index: 2},
		},
		LastError: "no such table: x",
	}
	out := formatAnswer(res)
	assert.True(t, strings.HasPrefix(out, "I tried this SQL:\n```sql\nSELECT 3\n```\n\nBut got an error: no such table: x"))
	assert.Contains(t, out, "Gave up after 3 attempts")
	assert.Contains(t, out, "1.\n```sql\nSELECT 1\n```")
	assert.Contains(t, out, "2.\n```sql\nSELECT 2\n```")
	assert.False(t, strings.HasSuffix(out, "\n"))

	single := &model.AnswerResult{FinalSQL: "SELECT 1", AttemptsUsed: 1, Attempts: res.Attempts[:1], LastError: "boom"}
	assert.Equal(t, "I tried this SQL:\n```sql\nSELECT 1\n```\n\nBut got an error: boom", formatAnswer(single))
}

func TestFormatAnswer_TableWhenNoNarrative(t *testing.T) {
	rows := make([]model.Row, tableRowLimit+5)
	for i := range rows {
		rows[i] = model.Row{"region": "west", "n": i}
	}
	res := &model.AnswerResult{FinalSQL: "SELECT region, n FROM t", Columns: []string{"region", "n"}, Rows: rows, Succeeded: true}

	out := formatAnswer(res)
	assert.Contains(t, out, "region")
	assert.Contains(t, out, "west")
	assert.Contains(t, out, "(50 of 55 rows shown)")
	assert.Contains(t, out, "*SQL used:*")
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, []model.Run{{
		ID:           "0123456789abcdef",
		Question:     "how much\nrevenue?",
		Status:       model.RunStatusAnswered,
		AttemptsUsed: 2,
		DurationMs:   1234,
		CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local),
	}})

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "2024-03-01 12:00")
	assert.Contains(t, out, "answered")
	assert.Contains(t, out, "1.23s")
	assert.Contains(t, out, "how much revenue?")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "abc", truncateID("abc"))
}

func TestComputeRunStats(t *testing.T) {
	s := computeRunStats([]model.Run{
		{Status: model.RunStatusAnswered, AttemptsUsed: 1, DurationMs: 1000},
		{Status: model.RunStatusAnswered, AttemptsUsed: 2, DurationMs: 3000},
		{Status: model.RunStatusExhausted, AttemptsUsed: 3, DurationMs: 2000},
		{Status: model.RunStatusFailed},
	})
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Answered)
	assert.Equal(t, 1, s.FirstTry)
	assert.Equal(t, 1, s.Exhausted)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 2.0, s.AvgAttempts, 1e-9)
	assert.InDelta(t, 2.0, s.AvgDurSecs, 1e-9)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	assert.Contains(t, buf.String(), "Avg attempts:")
	assert.Contains(t, buf.String(), "2.00")
}
