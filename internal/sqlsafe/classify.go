// Package sqlsafe classifies raw SQL text and gates it before execution.
// Classification looks only at the leading keyword; the safety checks are
// textual heuristics. This is a best-effort gate, not a SQL parser: comment
// stripping, multi-statement detection, and injection-pattern checks can
// both over-block legitimate SQL and under-block obfuscated attacks.
package sqlsafe

import (
	"strings"

	"github.com/askdb/askdb/internal/model"
)

var (
	readKeywords = map[string]bool{
		"select": true, "show": true, "describe": true, "explain": true, "desc": true,
	}
	writeKeywords = map[string]bool{
		"insert": true, "update": true, "delete": true, "replace": true,
	}
	ddlKeywords = map[string]bool{
		"create": true, "alter": true, "drop": true, "truncate": true, "rename": true,
	}
	dclKeywords = map[string]bool{
		"grant": true, "revoke": true,
	}
	destructiveKeywords = map[string]bool{
		"drop": true, "truncate": true, "delete": true,
	}
)

// leadingKeyword returns the first whitespace-delimited token of sql,
// lowercased. Empty input yields an empty string.
func leadingKeyword(sql string) string {
	fields := strings.Fields(strings.TrimSpace(sql))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Classify returns the QueryKind for a SQL statement based on its leading
// keyword. Unrecognized keywords default to READ: an unknown statement is
// treated as a read so the destructive gates never silently pass it.
func Classify(sql string) model.QueryKind {
	word := leadingKeyword(sql)
	switch {
	case ddlKeywords[word]:
		return model.KindDDL
	case writeKeywords[word]:
		return model.KindWrite
	case readKeywords[word]:
		return model.KindRead
	case dclKeywords[word]:
		return model.KindDCL
	default:
		return model.KindRead
	}
}

// IsDestructive reports whether the statement's leading keyword is DROP,
// TRUNCATE, or DELETE.
func IsDestructive(sql string) bool {
	return destructiveKeywords[leadingKeyword(sql)]
}

// ReferencedTables returns the subset of known table names that appear as
// whole tokens in the statement, in the order of known. Token matching, not
// parsing: aliases and quoted identifiers with odd casing may be missed.
func ReferencedTables(sql string, known []string) []string {
	tokens := map[string]bool{}
	for _, f := range strings.FieldsFunc(strings.ToLower(sql), func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		tokens[f] = true
	}

	matched := []string{}
	for _, name := range known {
		if tokens[strings.ToLower(name)] {
			matched = append(matched, name)
		}
	}
	return matched
}
