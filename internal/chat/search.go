package chat

import (
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/model"
)

// searchSchema matches the message as a case-insensitive substring against
// cached table and column names. Purely local, the generator is never
// consulted.
func (o *Orchestrator) searchSchema(term string, snapshot *model.SchemaSnapshot) string {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return "Search term is empty."
	}

	type match struct {
		table       string
		nameMatched bool
		columns     []string
		allColumns  []string
	}

	var matches []match
	for _, table := range snapshot.TableNames() {
		schema := snapshot.Tables[table]

		m := match{table: table, nameMatched: strings.Contains(strings.ToLower(table), needle)}
		for _, col := range schema.Columns {
			m.allColumns = append(m.allColumns, col.Name)
			if strings.Contains(strings.ToLower(col.Name), needle) {
				m.columns = append(m.columns, col.Name)
			}
		}
		if m.nameMatched || len(m.columns) > 0 {
			matches = append(matches, m)
		}
	}

	if len(matches) == 0 {
		return fmt.Sprintf("No tables or columns found matching %q.", term)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant tables:\n\n", len(matches))
	for _, m := range matches {
		fmt.Fprintf(&b, "%s\n", m.table)
		if m.nameMatched {
			b.WriteString("  table name matches\n")
		}
		if len(m.columns) > 0 {
			fmt.Fprintf(&b, "  matching columns: %s\n", strings.Join(m.columns, ", "))
		}
		fmt.Fprintf(&b, "  all columns: %s\n\n", strings.Join(m.allColumns, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
