package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/model"
)

// tableInfoRow holds a row from PRAGMA table_info().
type tableInfoRow struct {
	CID     int     `db:"cid"`
	Name    string  `db:"name"`
	Type    string  `db:"type"`
	NotNull int     `db:"notnull"`
	Default *string `db:"dflt_value"`
	PK      int     `db:"pk"`
}

// foreignKeyRow holds a row from PRAGMA foreign_key_list().
type foreignKeyRow struct {
	ID       int    `db:"id"`
	Seq      int    `db:"seq"`
	Table    string `db:"table"`
	From     string `db:"from"`
	To       string `db:"to"`
	OnUpdate string `db:"on_update"`
	OnDelete string `db:"on_delete"`
	Match    string `db:"match"`
}

// indexListRow holds a row from PRAGMA index_list().
type indexListRow struct {
	Seq     int    `db:"seq"`
	Name    string `db:"name"`
	Unique  int    `db:"unique"`
	Origin  string `db:"origin"`
	Partial int    `db:"partial"`
}

// indexInfoRow holds a row from PRAGMA index_info().
type indexInfoRow struct {
	SeqNo int     `db:"seqno"`
	CID   int     `db:"cid"`
	Name  *string `db:"name"`
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// IntrospectSchema builds a snapshot of every table in the SQLite database
// using PRAGMA introspection.
func (c *SQLiteConnector) IntrospectSchema(ctx context.Context) (*model.SchemaSnapshot, error) {
	const query = `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	var tableNames []string
	if err := c.db.SelectContext(ctx, &tableNames, query); err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	snapshot := model.EmptySnapshot()

	for _, name := range tableNames {
		ts, rels, err := c.introspectTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("introspect table %q: %w", name, err)
		}
		snapshot.Tables[name] = *ts
		snapshot.Relationships = append(snapshot.Relationships, rels...)
	}

	return snapshot, nil
}

func (c *SQLiteConnector) introspectTable(ctx context.Context, tableName string) (*model.TableSchema, []model.Relationship, error) {
	var columns []tableInfoRow
	if err := c.db.SelectContext(ctx, &columns,
		fmt.Sprintf("PRAGMA table_info(%s)", quoteIdentifier(tableName))); err != nil {
		return nil, nil, fmt.Errorf("table_info: %w", err)
	}

	ts := model.TableSchema{
		Columns:     []model.Column{},
		PrimaryKey:  []string{},
		ForeignKeys: []model.ForeignKey{},
		Indexes:     []model.Index{},
	}

	for _, col := range columns {
		ts.Columns = append(ts.Columns, model.Column{
			Name:         col.Name,
			Type:         col.Type,
			Nullable:     col.NotNull == 0,
			Default:      col.Default,
			IsPrimaryKey: col.PK > 0,
		})
		if col.PK > 0 {
			ts.PrimaryKey = append(ts.PrimaryKey, col.Name)
		}
	}

	var fks []foreignKeyRow
	if err := c.db.SelectContext(ctx, &fks,
		fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdentifier(tableName))); err != nil {
		return nil, nil, fmt.Errorf("foreign_key_list: %w", err)
	}

	// Rows sharing an id belong to one composite foreign key.
	fkByID := map[int]*model.ForeignKey{}
	order := []int{}
	for _, fk := range fks {
		g, ok := fkByID[fk.ID]
		if !ok {
			g = &model.ForeignKey{
				Name:          fmt.Sprintf("fk_%s_%d", tableName, fk.ID),
				ReferredTable: fk.Table,
			}
			fkByID[fk.ID] = g
			order = append(order, fk.ID)
		}
		g.ConstrainedColumns = append(g.ConstrainedColumns, fk.From)
		g.ReferredColumns = append(g.ReferredColumns, fk.To)
	}

	rels := []model.Relationship{}
	for _, id := range order {
		g := fkByID[id]
		ts.ForeignKeys = append(ts.ForeignKeys, *g)
		pairs := make([][2]string, len(g.ConstrainedColumns))
		for i := range g.ConstrainedColumns {
			pairs[i] = [2]string{g.ConstrainedColumns[i], g.ReferredColumns[i]}
		}
		rels = append(rels, model.Relationship{
			FromTable:   tableName,
			ToTable:     g.ReferredTable,
			ColumnPairs: pairs,
		})
	}

	var idxList []indexListRow
	if err := c.db.SelectContext(ctx, &idxList,
		fmt.Sprintf("PRAGMA index_list(%s)", quoteIdentifier(tableName))); err != nil {
		return nil, nil, fmt.Errorf("index_list: %w", err)
	}

	for _, idx := range idxList {
		var info []indexInfoRow
		if err := c.db.SelectContext(ctx, &info,
			fmt.Sprintf("PRAGMA index_info(%s)", quoteIdentifier(idx.Name))); err != nil {
			return nil, nil, fmt.Errorf("index_info %q: %w", idx.Name, err)
		}
		cols := []string{}
		for _, ir := range info {
			if ir.Name != nil {
				cols = append(cols, *ir.Name)
			}
		}
		ts.Indexes = append(ts.Indexes, model.Index{
			Name:     idx.Name,
			Columns:  cols,
			IsUnique: idx.Unique == 1,
		})
	}

	return &ts, rels, nil
}
