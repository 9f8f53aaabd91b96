package postgres

import (
	"context"
	"fmt"

	"github.com/askdb/askdb/internal/model"
)

// columnRow holds the result of querying information_schema.columns.
type columnRow struct {
	TableName  string  `db:"table_name"`
	ColumnName string  `db:"column_name"`
	UDTName    string  `db:"udt_name"`
	IsNullable string  `db:"is_nullable"`
	Default    *string `db:"column_default"`
}

// pkRow holds a primary key column mapping.
type pkRow struct {
	TableName  string `db:"table_name"`
	ColumnName string `db:"column_name"`
}

// fkRow holds a foreign key relationship.
type fkRow struct {
	ConstraintName   string `db:"constraint_name"`
	TableName        string `db:"table_name"`
	ColumnName       string `db:"column_name"`
	ReferencedTable  string `db:"referenced_table"`
	ReferencedColumn string `db:"referenced_column"`
}

// indexRow holds an index column from the pg_catalog join.
type indexRow struct {
	TableName  string `db:"table_name"`
	IndexName  string `db:"index_name"`
	ColumnName string `db:"column_name"`
	IsUnique   bool   `db:"is_unique"`
}

// IntrospectSchema builds a snapshot of every base table in the configured
// PostgreSQL schema.
func (c *PostgresConnector) IntrospectSchema(ctx context.Context) (*model.SchemaSnapshot, error) {
	const tableQuery = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	var tableNames []string
	if err := c.db.SelectContext(ctx, &tableNames, tableQuery, c.schemaName); err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	const columnQuery = `SELECT table_name, column_name, udt_name, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`

	var columns []columnRow
	if err := c.db.SelectContext(ctx, &columns, columnQuery, c.schemaName); err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}

	const pkQuery = `SELECT kcu.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1
		ORDER BY kcu.table_name, kcu.ordinal_position`

	var pks []pkRow
	if err := c.db.SelectContext(ctx, &pks, pkQuery, c.schemaName); err != nil {
		return nil, fmt.Errorf("introspect primary keys: %w", err)
	}

	const fkQuery = `SELECT
			tc.constraint_name,
			tc.table_name,
			kcu.column_name,
			ccu.table_name AS referenced_table,
			ccu.column_name AS referenced_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
		ORDER BY tc.constraint_name, kcu.ordinal_position`

	var fks []fkRow
	if err := c.db.SelectContext(ctx, &fks, fkQuery, c.schemaName); err != nil {
		return nil, fmt.Errorf("introspect foreign keys: %w", err)
	}

	const indexQuery = `SELECT
			t.relname AS table_name,
			i.relname AS index_name,
			a.attname AS column_name,
			ix.indisunique AS is_unique
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = $1 AND t.relkind = 'r'
		ORDER BY t.relname, i.relname, a.attnum`

	var indexes []indexRow
	if err := c.db.SelectContext(ctx, &indexes, indexQuery, c.schemaName); err != nil {
		return nil, fmt.Errorf("introspect indexes: %w", err)
	}

	pkSet := make(map[string]map[string]bool)
	pkMap := make(map[string][]string)
	for _, pk := range pks {
		if pkSet[pk.TableName] == nil {
			pkSet[pk.TableName] = make(map[string]bool)
		}
		pkSet[pk.TableName][pk.ColumnName] = true
		pkMap[pk.TableName] = append(pkMap[pk.TableName], pk.ColumnName)
	}

	colMap := make(map[string][]model.Column)
	for _, col := range columns {
		colMap[col.TableName] = append(colMap[col.TableName], model.Column{
			Name:         col.ColumnName,
			Type:         col.UDTName,
			Nullable:     col.IsNullable == "YES",
			Default:      col.Default,
			IsPrimaryKey: pkSet[col.TableName] != nil && pkSet[col.TableName][col.ColumnName],
		})
	}

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
		fkMap[g.table] = append(fkMap[g.table], model.ForeignKey{
			Name:               id[len(g.table)+1:],
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
			g = &idxGroup{table: ix.TableName, unique: ix.IsUnique}
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
