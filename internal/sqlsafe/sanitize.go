package sqlsafe

import (
	"regexp"
	"strings"
)

var (
	fenceOpenPattern   = regexp.MustCompile("```[a-zA-Z]*")
	lineCommentPattern = regexp.MustCompile(`--.*$`)
)

// Sanitize normalizes language-model output into a single executable SQL
// statement: markdown code fences are stripped, line comments removed,
// and when several statements are present only the first is kept. Applied
// before classification so the gates see what would actually run.
func Sanitize(sql string) string {
	sql = fenceOpenPattern.ReplaceAllString(sql, "")
	sql = strings.ReplaceAll(sql, "```", "")

	var lines []string
	for _, line := range strings.Split(sql, "\n") {
		line = lineCommentPattern.ReplaceAllString(line, "")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	sql = strings.TrimSpace(strings.Join(lines, "\n"))

	if strings.Count(sql, ";") > 1 {
		sql = strings.TrimSpace(strings.SplitN(sql, ";", 2)[0]) + ";"
	}

	return sql
}
