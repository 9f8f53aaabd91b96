// Package sqlite implements the askdb connector for SQLite databases,
// used for local files and in-memory test databases.
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/askdb/askdb/internal/connector"
	"github.com/askdb/askdb/internal/model"
)

// SQLiteConnector implements connector.Connector for SQLite databases.
type SQLiteConnector struct {
	db *sqlx.DB
}

// New creates a new SQLiteConnector.
func New() connector.Connector {
	return &SQLiteConnector{}
}

// Connect opens the SQLite database named by params.Database (a file path
// or ":memory:"). Host, port, and credentials are ignored.
func (c *SQLiteConnector) Connect(params model.ConnectionParams, pool connector.PoolConfig) error {
	dsn := params.Database
	if dsn == "" {
		dsn = ":memory:"
	}
	if strings.Contains(dsn, ":memory:") {
		// Shared cache keeps all pool connections on the same in-memory DB.
		dsn = "file::memory:?cache=shared"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("sqlite open: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}

	c.db = db
	return nil
}

// Disconnect closes the connection pool.
func (c *SQLiteConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *SQLiteConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *SQLiteConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the driver identifier for SQLite.
func (c *SQLiteConnector) DriverName() string { return "sqlite" }

// ApplySessionTimeout is a no-op: SQLite has no server-side execution cap,
// so only the caller's context deadline bounds execution.
func (c *SQLiteConnector) ApplySessionTimeout(ctx context.Context, conn *sqlx.Conn, timeout time.Duration) error {
	return nil
}
