package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/askdb/askdb/internal/model"
)

// mockConnector implements Connector for testing without a real database.
type mockConnector struct {
	connected    bool
	disconnected bool
	pingErr      error
	connectErr   error
}

func (m *mockConnector) Connect(_ model.ConnectionParams, _ PoolConfig) error {
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}
func (m *mockConnector) Disconnect() error {
	m.disconnected = true
	m.connected = false
	return nil
}
func (m *mockConnector) Ping(_ context.Context) error { return m.pingErr }
func (m *mockConnector) DB() *sqlx.DB                 { return nil }
func (m *mockConnector) DriverName() string           { return "mock" }
func (m *mockConnector) IntrospectSchema(_ context.Context) (*model.SchemaSnapshot, error) {
	return model.EmptySnapshot(), nil
}
func (m *mockConnector) ApplySessionTimeout(_ context.Context, _ *sqlx.Conn, _ time.Duration) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams() model.ConnectionParams {
	return model.ConnectionParams{
		Driver:   "mock",
		User:     "u",
		Host:     "localhost",
		Port:     3306,
		Database: "testdb",
	}
}

func TestAcquireCachesHandle(t *testing.T) {
	var created []*mockConnector
	r := NewRegistry(PoolConfig{}, testLogger())
	r.RegisterDriver("mock", func() Connector {
		m := &mockConnector{}
		created = append(created, m)
		return m
	})

	ctx := context.Background()

	first, err := r.Acquire(ctx, testParams())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	second, err := r.Acquire(ctx, testParams())
	if err != nil {
		t.Fatalf("Acquire (cached): %v", err)
	}

	if first != second {
		t.Error("second Acquire returned a different handle")
	}
	if len(created) != 1 {
		t.Errorf("created %d connectors, want 1", len(created))
	}
	if r.ActiveCount() != 1 {
		t.Errorf("ActiveCount = %d, want 1", r.ActiveCount())
	}
}

func TestAcquireRebuildsOnFailedProbe(t *testing.T) {
	var created []*mockConnector
	r := NewRegistry(PoolConfig{}, testLogger())
	r.RegisterDriver("mock", func() Connector {
		m := &mockConnector{}
		created = append(created, m)
		return m
	})

	ctx := context.Background()

	first, err := r.Acquire(ctx, testParams())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Break the cached handle; the next acquire must rebuild transparently.
	first.(*mockConnector).pingErr = fmt.Errorf("connection reset")

	second, err := r.Acquire(ctx, testParams())
	if err != nil {
		t.Fatalf("Acquire after stale handle: %v", err)
	}
	if first == second {
		t.Error("stale handle was returned instead of a rebuilt one")
	}
	if !first.(*mockConnector).disconnected {
		t.Error("stale handle was not disposed")
	}
	if len(created) != 2 {
		t.Errorf("created %d connectors, want 2", len(created))
	}
}

func TestAcquireUnsupportedDriver(t *testing.T) {
	r := NewRegistry(PoolConfig{}, testLogger())

	_, err := r.Acquire(context.Background(), testParams())
	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("Acquire = %v, want *ConnectError", err)
	}
}

func TestAcquireConnectFailure(t *testing.T) {
	r := NewRegistry(PoolConfig{}, testLogger())
	r.RegisterDriver("mock", func() Connector {
		return &mockConnector{connectErr: fmt.Errorf("dial refused")}
	})

	_, err := r.Acquire(context.Background(), testParams())
	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("Acquire = %v, want *ConnectError", err)
	}
	if connErr.Database != "testdb" {
		t.Errorf("ConnectError.Database = %q, want testdb", connErr.Database)
	}
}

func TestReleaseAll(t *testing.T) {
	var created []*mockConnector
	r := NewRegistry(PoolConfig{}, testLogger())
	r.RegisterDriver("mock", func() Connector {
		m := &mockConnector{}
		created = append(created, m)
		return m
	})

	ctx := context.Background()
	if _, err := r.Acquire(ctx, testParams()); err != nil {
		t.Fatal(err)
	}
	other := testParams()
	other.Database = "otherdb"
	if _, err := r.Acquire(ctx, other); err != nil {
		t.Fatal(err)
	}

	r.ReleaseAll()

	if r.ActiveCount() != 0 {
		t.Errorf("ActiveCount after ReleaseAll = %d, want 0", r.ActiveCount())
	}
	for i, m := range created {
		if !m.disconnected {
			t.Errorf("connector %d not disconnected", i)
		}
	}
}

func TestConnectionKeyExcludesPassword(t *testing.T) {
	a := testParams()
	a.Password = "one"
	b := testParams()
	b.Password = "two"

	if a.Key() != b.Key() {
		t.Error("connection key must not depend on the password")
	}
	if a.HashKey() != b.HashKey() {
		t.Error("hash key must not depend on the password")
	}
}
