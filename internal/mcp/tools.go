package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// connectionParams adds the shared database connection arguments to a tool.
func connectionParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("driver",
			mcp.Description("Database driver: mysql, postgres, or sqlite (default mysql)"),
		),
		mcp.WithString("user",
			mcp.Description("Database user"),
		),
		mcp.WithString("password",
			mcp.Description("Database password"),
		),
		mcp.WithString("host",
			mcp.Description("Database host (default localhost)"),
		),
		mcp.WithNumber("port",
			mcp.Description("Database port (defaults by driver: 3306 mysql, 5432 postgres)"),
		),
		mcp.WithString("database",
			mcp.Required(),
			mcp.Description("Database name, or the file path for sqlite"),
		),
	}
}

// registerTools registers all askdb MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	askOpts := []mcp.ToolOption{
		mcp.WithDescription(
			"Ask a natural-language question about a database. The question is " +
				"converted to SQL using the live schema, gated for safety, executed, " +
				"and the result returned as JSON. Destructive statements (DROP, " +
				"TRUNCATE, DELETE) are blocked unless allow_destructive and confirm " +
				"are both set.",
		),
		mcp.WithToolAnnotation(mutatingAnnotation()),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The natural-language question or instruction"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session to continue; omit to start a new one"),
		),
		mcp.WithBoolean("allow_destructive",
			mcp.Description("Allow DROP/TRUNCATE/DELETE statements"),
		),
		mcp.WithBoolean("confirm",
			mcp.Description("Confirm execution of a destructive statement"),
		),
	}
	srv.AddTool(
		mcp.NewTool("askdb_ask", append(askOpts, connectionParams()...)...),
		s.handleAsk,
	)

	execOpts := []mcp.ToolOption{
		mcp.WithDescription(
			"Execute a raw SQL statement. The statement is sanitized (markdown " +
				"fences and comments stripped, one statement only) and gated for " +
				"safety before execution. Reads return rows; writes return the " +
				"affected row count.",
		),
		mcp.WithToolAnnotation(mutatingAnnotation()),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL statement to execute"),
		),
		mcp.WithBoolean("allow_destructive",
			mcp.Description("Allow DROP/TRUNCATE/DELETE statements"),
		),
		mcp.WithBoolean("confirm",
			mcp.Description("Confirm execution of a destructive statement"),
		),
	}
	srv.AddTool(
		mcp.NewTool("askdb_execute_sql", append(execOpts, connectionParams()...)...),
		s.handleExecuteSQL,
	)

	schemaOpts := []mcp.ToolOption{
		mcp.WithDescription(
			"Get the full schema of a database: tables with columns, primary " +
				"keys, foreign keys, indexes, and inferred relationships. Served " +
				"from a short-lived cache; set force_refresh to re-introspect.",
		),
		mcp.WithToolAnnotation(readOnlyAnnotation()),
		mcp.WithBoolean("force_refresh",
			mcp.Description("Bypass the cache and introspect the database now"),
		),
	}
	srv.AddTool(
		mcp.NewTool("askdb_schema", append(schemaOpts, connectionParams()...)...),
		s.handleSchema,
	)

	searchOpts := []mcp.ToolOption{
		mcp.WithDescription(
			"Search the cached schema for tables and columns whose names contain " +
				"a term. Purely local string matching, no SQL is executed.",
		),
		mcp.WithToolAnnotation(readOnlyAnnotation()),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Substring to look for in table and column names"),
		),
	}
	srv.AddTool(
		mcp.NewTool("askdb_search_schema", append(searchOpts, connectionParams()...)...),
		s.handleSearchSchema,
	)
}
