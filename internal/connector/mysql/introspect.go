package mysql

import (
	"context"
	"fmt"

	"github.com/askdb/askdb/internal/model"
)

// columnRow holds the result of querying information_schema.columns.
type columnRow struct {
	TableName  string  `db:"TABLE_NAME"`
	ColumnName string  `db:"COLUMN_NAME"`
	ColumnType string  `db:"COLUMN_TYPE"`
	IsNullable string  `db:"IS_NULLABLE"`
	Default    *string `db:"COLUMN_DEFAULT"`
	ColumnKey  string  `db:"COLUMN_KEY"`
}

// fkRow holds a foreign key relationship.
type fkRow struct {
	ConstraintName   string `db:"CONSTRAINT_NAME"`
	TableName        string `db:"TABLE_NAME"`
	ColumnName       string `db:"COLUMN_NAME"`
	ReferencedTable  string `db:"REFERENCED_TABLE_NAME"`
	ReferencedColumn string `db:"REFERENCED_COLUMN_NAME"`
}

// indexRow holds an index column from information_schema.statistics.
type indexRow struct {
	TableName  string `db:"TABLE_NAME"`
	IndexName  string `db:"INDEX_NAME"`
	ColumnName string `db:"COLUMN_NAME"`
	NonUnique  int    `db:"NON_UNIQUE"`
}

// IntrospectSchema builds a snapshot of every base table in the configured
// MySQL database, including columns, primary keys, foreign keys, indexes,
// and the denormalized relationship list.
func (c *MySQLConnector) IntrospectSchema(ctx context.Context) (*model.SchemaSnapshot, error) {
	const tableQuery = `SELECT TABLE_NAME FROM information_schema.tables
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

	var tableNames []string
	if err := c.db.SelectContext(ctx, &tableNames, tableQuery, c.schemaName); err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	const columnQuery = `SELECT TABLE_NAME, COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE,
			COLUMN_DEFAULT, COLUMN_KEY
		FROM information_schema.columns
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME, ORDINAL_POSITION`

	var columns []columnRow
	if err := c.db.SelectContext(ctx, &columns, columnQuery, c.schemaName); err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}

	const fkQuery = `SELECT kcu.CONSTRAINT_NAME, kcu.TABLE_NAME, kcu.COLUMN_NAME,
			kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME
		FROM information_schema.key_column_usage kcu
		WHERE kcu.TABLE_SCHEMA = ? AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

	var fks []fkRow
	if err := c.db.SelectContext(ctx, &fks, fkQuery, c.schemaName); err != nil {
		return nil, fmt.Errorf("introspect foreign keys: %w", err)
	}

	const indexQuery = `SELECT TABLE_NAME, INDEX_NAME, COLUMN_NAME, NON_UNIQUE
		FROM information_schema.statistics
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME, INDEX_NAME, SEQ_IN_INDEX`

	var indexes []indexRow
	if err := c.db.SelectContext(ctx, &indexes, indexQuery, c.schemaName); err != nil {
		return nil, fmt.Errorf("introspect indexes: %w", err)
	}

	// Group columns per table
	colMap := make(map[string][]model.Column)
	pkMap := make(map[string][]string)
	for _, col := range columns {
		isPK := col.ColumnKey == "PRI"
		colMap[col.TableName] = append(colMap[col.TableName], model.Column{
			Name:         col.ColumnName,
			Type:         col.ColumnType,
			Nullable:     col.IsNullable == "YES",
			Default:      col.Default,
			IsPrimaryKey: isPK,
		})
		if isPK {
			pkMap[col.TableName] = append(pkMap[col.TableName], col.ColumnName)
		}
	}

	// Group foreign keys per constraint, preserving column order
	type fkGroup struct {
		table       string
		referenced  string
		constrained []string
		referred    []string
	}
	fkOrder := []string{}
	fkGroups := make(map[string]*fkGroup)
	for _, fk := range fks {
		id := fk.TableName + "." + fk.ConstraintName
		g, ok := fkGroups[id]
		if !ok {
			g = &fkGroup{table: fk.TableName, referenced: fk.ReferencedTable}
			fkGroups[id] = g
			fkOrder = append(fkOrder, id)
		}
		g.constrained = append(g.constrained, fk.ColumnName)
		g.referred = append(g.referred, fk.ReferencedColumn)
	}

	fkMap := make(map[string][]model.ForeignKey)
	relationships := []model.Relationship{}
	for _, id := range fkOrder {
		g := fkGroups[id]
		name := id[len(g.table)+1:]
		fkMap[g.table] = append(fkMap[g.table], model.ForeignKey{
			Name:               name,
			ConstrainedColumns: g.constrained,
			ReferredTable:      g.referenced,
			ReferredColumns:    g.referred,
		})
		pairs := make([][2]string, len(g.constrained))
		for i := range g.constrained {
			pairs[i] = [2]string{g.constrained[i], g.referred[i]}
		}
		relationships = append(relationships, model.Relationship{
			FromTable:   g.table,
			ToTable:     g.referenced,
			ColumnPairs: pairs,
		})
	}

	// Group indexes per table
	type idxGroup struct {
		table   string
		unique  bool
		columns []string
	}
	idxOrder := []string{}
	idxGroups := make(map[string]*idxGroup)
	for _, ix := range indexes {
		id := ix.TableName + "." + ix.IndexName
		g, ok := idxGroups[id]
		if !ok {
			g = &idxGroup{table: ix.TableName, unique: ix.NonUnique == 0}
			idxGroups[id] = g
			idxOrder = append(idxOrder, id)
		}
		g.columns = append(g.columns, ix.ColumnName)
	}

	idxMap := make(map[string][]model.Index)
	for _, id := range idxOrder {
		g := idxGroups[id]
		idxMap[g.table] = append(idxMap[g.table], model.Index{
			Name:     id[len(g.table)+1:],
			Columns:  g.columns,
			IsUnique: g.unique,
		})
	}

	snapshot := model.EmptySnapshot()
	snapshot.Relationships = relationships
	for _, name := range tableNames {
		ts := model.TableSchema{
			Columns:     colMap[name],
			PrimaryKey:  pkMap[name],
			ForeignKeys: fkMap[name],
			Indexes:     idxMap[name],
		}
		if ts.Columns == nil {
			ts.Columns = []model.Column{}
		}
		if ts.PrimaryKey == nil {
			ts.PrimaryKey = []string{}
		}
		if ts.ForeignKeys == nil {
			ts.ForeignKeys = []model.ForeignKey{}
		}
		if ts.Indexes == nil {
			ts.Indexes = []model.Index{}
		}
		snapshot.Tables[name] = ts
	}

	return snapshot, nil
}
