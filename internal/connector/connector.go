// Package connector manages pooled, health-checked database handles keyed
// by connection identity. Driver-specific behavior (DSN construction,
// introspection, execution-time caps) lives in the per-driver subpackages.
package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/askdb/askdb/internal/model"
)

// PoolConfig holds connection pool limits applied to every handle the
// registry creates.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Connector is the interface every database driver must implement.
type Connector interface {
	// Connection management
	Connect(params model.ConnectionParams, pool PoolConfig) error
	Disconnect() error
	Ping(ctx context.Context) error
	DB() *sqlx.DB
	DriverName() string

	// Schema introspection
	IntrospectSchema(ctx context.Context) (*model.SchemaSnapshot, error)

	// ApplySessionTimeout sets a server-side execution-time cap on the
	// given dedicated connection. Drivers without a server-side cap
	// return nil; callers still enforce the context deadline.
	ApplySessionTimeout(ctx context.Context, conn *sqlx.Conn, timeout time.Duration) error
}

// Factory creates a new, unconnected Connector instance.
type Factory func() Connector

// ConnectError indicates the underlying database could not be reached or
// the initial liveness probe failed.
type ConnectError struct {
	Host     string
	Database string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to database %s@%s: %v", e.Database, e.Host, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
