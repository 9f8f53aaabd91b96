package cli

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/askdb/askdb/internal/ai"
	"github.com/askdb/askdb/internal/chat"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/connector"
	"github.com/askdb/askdb/internal/connector/mysql"
	"github.com/askdb/askdb/internal/connector/postgres"
	"github.com/askdb/askdb/internal/connector/sqlite"
	"github.com/askdb/askdb/internal/executor"
	"github.com/askdb/askdb/internal/schemacache"
	"github.com/askdb/askdb/internal/session"
)

// appStack bundles the long-lived components a command needs to serve
// queries. Built once per process by buildStack.
type appStack struct {
	Registry *connector.Registry
	Sessions *session.Store
	Orch     *chat.Orchestrator
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newRegistry(cfg config.Settings, logger *slog.Logger) *connector.Registry {
	registry := connector.NewRegistry(connector.PoolConfig{
		MaxOpenConns:    cfg.PoolSize + cfg.PoolOverflow,
		MaxIdleConns:    cfg.PoolSize,
		ConnMaxLifetime: cfg.PoolRecycle,
	}, logger)
	registry.RegisterDriver("mysql", func() connector.Connector { return mysql.New() })
	registry.RegisterDriver("postgres", func() connector.Connector { return postgres.New() })
	registry.RegisterDriver("sqlite", func() connector.Connector { return sqlite.New() })
	return registry
}

func buildStack(cfg config.Settings, logger *slog.Logger) *appStack {
	registry := newRegistry(cfg, logger)
	schemas := schemacache.New(registry, cfg.SchemaTTL, logger)
	exec := executor.New(cfg.QueryTimeout, logger)
	sessions := session.NewStore(session.Options{
		MaxChatHistory:         cfg.MaxChatHistory,
		MaxConversationHistory: cfg.MaxConversationHistory,
		IdleTimeout:            cfg.SessionIdleTimeout,
	}, logger)
	gen := ai.NewClient(ai.Config{
		BaseURL:     cfg.AIBaseURL,
		APIKey:      cfg.AIAPIKey,
		Model:       cfg.AIModel,
		Temperature: cfg.AITemperature,
		MaxTokens:   cfg.AIMaxTokens,
		Timeout:     cfg.AITimeout,
	})
	if !gen.Available() {
		logger.Warn("no AI API key configured - natural language features disabled")
	}
	return &appStack{
		Registry: registry,
		Sessions: sessions,
		Orch:     chat.New(registry, schemas, exec, sessions, gen, logger),
	}
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()
	return string(pwBytes), nil
}
