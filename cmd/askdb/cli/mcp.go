package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes askdb's query,
schema, and search operations as tools for AI agents.

In stdio mode, the server communicates over stdin/stdout using JSON-RPC,
suitable for direct integration with Claude Desktop or other MCP clients.

In HTTP mode, the server listens on the specified port for streamable
HTTP connections.`,
		Example: `  askdb mcp                               # stdio mode (for Claude Desktop)
  askdb mcp --transport http --port 3001  # streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	cfg := config.Load(viper.GetViper())
	logger := newLogger(false)

	stack := buildStack(cfg, logger)
	defer stack.Registry.ReleaseAll()

	srv := mcp.NewMCPServer(stack.Orch, appVersionString, logger)

	switch transport {
	case "stdio":
		return srv.ServeStdio()
	case "http":
		addr := fmt.Sprintf(":%d", port)
		logger.Info("starting MCP HTTP server", "addr", addr)
		return srv.ServeHTTP(addr)
	default:
		return fmt.Errorf("unknown transport %q: use stdio or http", transport)
	}
}
