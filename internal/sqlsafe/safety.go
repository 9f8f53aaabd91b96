package sqlsafe

import (
	"fmt"
	"regexp"
	"strings"
)

// UnsafeQueryError is returned when a statement is blocked by the safety
// checks or by the destructive-operation gate.
type UnsafeQueryError struct {
	Reason string
	SQL    string
}

func (e *UnsafeQueryError) Error() string {
	return fmt.Sprintf("query blocked for safety: %s", e.Reason)
}

var (
	unionSelectPattern = regexp.MustCompile(`\bunion\b.*\bselect\b`)
	timingFnPattern    = regexp.MustCompile(`\b(sleep|benchmark|waitfor)\b`)
)

// CheckSafety runs the textual injection heuristics against sql and
// returns whether it may execute plus the matching reason. A true result
// with a non-default reason is a pass-with-warning (information_schema
// access).
func CheckSafety(sql string) (bool, string) {
	lower := strings.ToLower(strings.TrimSpace(sql))

	if strings.Count(lower, ";") > 1 {
		return false, "multiple statements detected"
	}
	if strings.Contains(sql, "--") || strings.Contains(sql, "/*") || strings.Contains(sql, "*/") {
		return false, "SQL comments detected"
	}
	if unionSelectPattern.MatchString(lower) {
		return false, "UNION SELECT detected"
	}
	if timingFnPattern.MatchString(lower) {
		return false, "timing attack functions detected"
	}
	if strings.Contains(lower, "information_schema") {
		return true, "information_schema access (allowed with warning)"
	}
	return true, "query appears safe"
}

// Enforce applies CheckSafety and the first destructive gate. A destructive
// statement fails unless allowDestructive is set; callers that execute must
// additionally require an explicit confirm flag, so destructive execution
// is always checked at two distinct points.
func Enforce(sql string, allowDestructive bool) error {
	safe, reason := CheckSafety(sql)
	if !safe {
		return &UnsafeQueryError{Reason: reason, SQL: sql}
	}
	if IsDestructive(sql) && !allowDestructive {
		return &UnsafeQueryError{Reason: "destructive query not allowed", SQL: sql}
	}
	return nil
}
