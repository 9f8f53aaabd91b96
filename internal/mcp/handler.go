package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/askdb/askdb/internal/model"
)

// connectionFromRequest assembles ConnectionParams from the shared tool
// arguments. Defaults are applied by Normalize on the way in.
func connectionFromRequest(request mcp.CallToolRequest) (model.ConnectionParams, error) {
	database, err := request.RequireString("database")
	if err != nil {
		return model.ConnectionParams{}, fmt.Errorf("missing required parameter %q", "database")
	}
	return model.ConnectionParams{
		Driver:   request.GetString("driver", ""),
		User:     request.GetString("user", ""),
		Password: request.GetString("password", ""),
		Host:     request.GetString("host", ""),
		Port:     request.GetInt("port", 0),
		Database: database,
	}, nil
}

func (s *MCPServer) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return toolError("missing required parameter %q", "question")
	}
	params, err := connectionFromRequest(request)
	if err != nil {
		return toolError("%v", err)
	}

	sess := s.orch.Sessions().GetOrCreate(request.GetString("session_id", ""))
	result, err := s.orch.ProcessQuery(ctx, sess.ID, question, params,
		request.GetBool("allow_destructive", false),
		request.GetBool("confirm", false))
	if err != nil {
		return toolError("query failed: %v", err)
	}

	return successJSON(map[string]interface{}{
		"session_id": sess.ID,
		"result":     result,
	})
}

func (s *MCPServer) handleExecuteSQL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sqlText, err := request.RequireString("sql")
	if err != nil {
		return toolError("missing required parameter %q", "sql")
	}
	params, err := connectionFromRequest(request)
	if err != nil {
		return toolError("%v", err)
	}

	result, err := s.orch.ExecuteSQL(ctx, sqlText, params,
		request.GetBool("allow_destructive", false),
		request.GetBool("confirm", false))
	if err != nil {
		return toolError("execution failed: %v", err)
	}
	return successJSON(result)
}

func (s *MCPServer) handleSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := connectionFromRequest(request)
	if err != nil {
		return toolError("%v", err)
	}

	cache := s.orch.Schemas()
	if request.GetBool("force_refresh", false) {
		snapshot, err := cache.Refresh(ctx, params)
		if err != nil {
			return toolError("introspection failed: %v", err)
		}
		return successJSON(snapshot)
	}
	return successJSON(cache.Get(ctx, params))
}

func (s *MCPServer) handleSearchSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := request.RequireString("term")
	if err != nil {
		return toolError("missing required parameter %q", "term")
	}
	params, err := connectionFromRequest(request)
	if err != nil {
		return toolError("%v", err)
	}

	resp, err := s.orch.HandleMessage(ctx, model.ChatRequest{
		Message:    term,
		Mode:       string(model.ModeSearch),
		Connection: params,
	})
	if err != nil {
		return toolError("search failed: %v", err)
	}
	return mcp.NewToolResultText(resp.Response), nil
}

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way
// are visible to the client so it can self-correct; they do not terminate
// the MCP session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}
