// Package postgres implements the askdb connector for PostgreSQL databases.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/askdb/askdb/internal/connector"
	"github.com/askdb/askdb/internal/model"
)

// PostgresConnector implements connector.Connector for PostgreSQL databases.
type PostgresConnector struct {
	db         *sqlx.DB
	schemaName string
}

// New creates a new PostgresConnector targeting the public schema.
func New() connector.Connector {
	return &PostgresConnector{schemaName: "public"}
}

// Connect opens a pooled connection to the PostgreSQL database described
// by params. Credentials are percent-encoded so passwords containing URL
// metacharacters cannot mis-split the DSN authority.
func (c *PostgresConnector) Connect(params model.ConnectionParams, pool connector.PoolConfig) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.PathEscape(params.User),
		url.PathEscape(params.Password),
		params.Host, params.Port, params.Database)

	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("postgres open: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	c.db = db
	return nil
}

// Disconnect closes the connection pool.
func (c *PostgresConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *PostgresConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *PostgresConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the driver identifier for PostgreSQL.
func (c *PostgresConnector) DriverName() string { return "postgres" }

// ApplySessionTimeout caps query execution time on the given connection
// via statement_timeout, which PostgreSQL measures in milliseconds.
func (c *PostgresConnector) ApplySessionTimeout(ctx context.Context, conn *sqlx.Conn, timeout time.Duration) error {
	_, err := conn.ExecContext(ctx, fmt.Sprintf("SET statement_timeout = %d", timeout.Milliseconds()))
	return err
}
