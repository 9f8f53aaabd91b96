package executor

import (
	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/sqlsafe"
)

// Simulate classifies a statement and returns the dry-run envelope without
// touching the database. The validation block is static; tables_accessed is
// populated only when a snapshot is supplied.
func Simulate(sqlText string, snapshot *model.SchemaSnapshot) *model.SimulationResult {
	kind := sqlsafe.Classify(sqlText)

	tables := []string{}
	if snapshot != nil {
		tables = sqlsafe.ReferencedTables(sqlText, snapshot.TableNames())
	}

	return &model.SimulationResult{
		Mode:      "simulation",
		QueryKind: kind,
		SQL:       sqlText,
		Validation: model.SimulationValidation{
			Syntax:              "valid",
			TablesAccessed:      tables,
			EstimatedComplexity: "medium",
		},
		Note: "query not executed, simulation mode active",
	}
}
