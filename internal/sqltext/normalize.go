// Package sqltext turns model output into an executable SQL statement.
package sqltext

import (
	"strings"
	"unicode"
)

const fence = "```"

// languageTags are fence info strings (or bare first lines) dropped before execution.
var languageTags = map[string]bool{
	"sql":        true,
	"duckdb":     true,
	"postgres":   true,
	"postgresql": true,
	"psql":       true,
	"pgsql":      true,
	"sqlite":     true,
	"tsql":       true,
	"t-sql":      true,
	"mssql":      true,
	"mysql":      true,
}

// statementKeywords mark the first line of a SQL statement when a model
// prefixes its answer with prose.
var statementKeywords = map[string]bool{
	"SELECT":    true,
	"WITH":      true,
	"VALUES":    true,
	"SHOW":      true,
	"DESCRIBE":  true,
	"EXPLAIN":   true,
	"PRAGMA":    true,
	"SUMMARIZE": true,
}

// Normalize returns the bare SQL statement contained in raw. It extracts the
// first fenced code block if one exists, drops a leading language tag line,
// cuts prose before and after the statement, trims whitespace, and removes
// trailing semicolons. Normalize is idempotent.
func Normalize(raw string) string {
	// Every pass returns a substring of its input, so the loop stops at a
	// fixed point.
	s := raw
	for {
		next := normalizeOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func normalizeOnce(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = extractFence(s)
	s = stripLanguageTags(s)
	s = cutLeadingProse(s)
	s = cutTrailingProse(s)
	return stripTrailingSemicolons(s)
}

// extractFence returns the body of the first fenced block. An unterminated
// fence yields everything after the opening line.
func extractFence(s string) string {
	start := strings.Index(s, fence)
	if start < 0 {
		return s
	}
	rest := s[start+len(fence):]

	// Single-line fence: ```SELECT 1```
	if nl := strings.IndexByte(rest, '\n'); nl < 0 || strings.Contains(rest[:nl], fence) {
		if end := strings.Index(rest, fence); end >= 0 {
			return rest[:end]
		}
		return rest
	}

	if end := strings.Index(rest, fence); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

// stripLanguageTags drops first lines consisting only of a language tag. A
// tag with nothing after it is kept so that the function stays idempotent.
func stripLanguageTags(s string) string {
	for {
		trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
		nl := strings.IndexByte(trimmed, '\n')
		if nl < 0 {
			return trimmed
		}
		if !languageTags[strings.ToLower(strings.TrimSpace(trimmed[:nl]))] {
			return trimmed
		}
		s = trimmed[nl+1:]
	}
}

func cutLeadingProse(s string) string {
	lines := strings.Split(s, "\n")
	if startsStatement(lines[0]) {
		return s
	}
	for i := 1; i < len(lines); i++ {
		if startsStatement(lines[i]) {
			return strings.Join(lines[i:], "\n")
		}
	}
	return s
}

// cutTrailingProse drops everything after the first line that ends a
// statement when the next non-blank line is neither SQL nor a SQL comment.
func cutTrailingProse(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if !strings.HasSuffix(strings.TrimSpace(line), ";") {
			continue
		}
		next := nextNonBlank(lines[i+1:])
		if next == "" {
			return s
		}
		if startsStatement(next) || strings.HasPrefix(next, "--") {
			continue
		}
		return strings.Join(lines[:i+1], "\n")
	}
	return s
}

func nextNonBlank(lines []string) string {
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			return t
		}
	}
	return ""
}

func startsStatement(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	word := strings.ToUpper(strings.TrimRight(strings.TrimLeft(fields[0], "("), ";"))
	return statementKeywords[word]
}

func stripTrailingSemicolons(s string) string {
	trimmed := strings.TrimSpace(s)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
