package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SchemaSnapshot is the cached introspection result for one database
// connection. Snapshots are immutable once built; the schema cache replaces
// them wholesale on refresh.
type SchemaSnapshot struct {
	Tables        map[string]TableSchema `json:"tables"`
	Relationships []Relationship         `json:"relationships"`
	CapturedAt    time.Time              `json:"captured_at"`
}

// TableSchema describes the structure of a single table.
type TableSchema struct {
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	Indexes     []Index      `json:"indexes"`
}

// Column describes a single column within a table.
type Column struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Nullable     bool    `json:"nullable"`
	Default      *string `json:"default,omitempty"`
	IsPrimaryKey bool    `json:"is_primary_key"`
}

// ForeignKey describes a foreign key constraint between two tables.
type ForeignKey struct {
	Name               string   `json:"name"`
	ConstrainedColumns []string `json:"constrained_columns"`
	ReferredTable      string   `json:"referred_table"`
	ReferredColumns    []string `json:"referred_columns"`
}

// Index describes a database index on one or more columns.
type Index struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	IsUnique bool     `json:"is_unique"`
}

// Relationship is a denormalized view of a foreign key, listing the
// (from, to) column pairs that join two tables.
type Relationship struct {
	FromTable   string      `json:"from_table"`
	ToTable     string      `json:"to_table"`
	ColumnPairs [][2]string `json:"column_pairs"`
}

// EmptySnapshot returns a well-shaped snapshot with no tables. Used when
// introspection fails and the caller must still receive a usable value.
func EmptySnapshot() *SchemaSnapshot {
	return &SchemaSnapshot{
		Tables:        map[string]TableSchema{},
		Relationships: []Relationship{},
		CapturedAt:    time.Now().UTC(),
	}
}

// TableNames returns the sorted table names in the snapshot.
func (s *SchemaSnapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary renders a compact one-line-per-table description suitable for a
// language-model prompt. At most maxTables tables are listed; zero means
// no limit.
func (s *SchemaSnapshot) Summary(maxTables int) string {
	names := s.TableNames()
	if len(names) == 0 {
		return "No tables available."
	}

	shown := names
	if maxTables > 0 && len(names) > maxTables {
		shown = names[:maxTables]
	}

	var b strings.Builder
	for _, name := range shown {
		cols := make([]string, 0, len(s.Tables[name].Columns))
		for _, c := range s.Tables[name].Columns {
			col := c.Name + " " + c.Type
			if c.IsPrimaryKey {
				col += " PK"
			}
			cols = append(cols, col)
		}
		fmt.Fprintf(&b, "%s(%s)\n", name, strings.Join(cols, ", "))
	}
	if len(shown) < len(names) {
		fmt.Fprintf(&b, "... and %d more tables\n", len(names)-len(shown))
	}
	for _, rel := range s.Relationships {
		pairs := make([]string, 0, len(rel.ColumnPairs))
		for _, p := range rel.ColumnPairs {
			pairs = append(pairs, p[0]+"="+p[1])
		}
		fmt.Fprintf(&b, "%s -> %s on %s\n", rel.FromTable, rel.ToTable, strings.Join(pairs, ", "))
	}
	return b.String()
}
