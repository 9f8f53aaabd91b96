package connector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/askdb/askdb/internal/model"
)

// Registry maps connection identity keys to live, health-checked handles.
// On every acquire the cached handle is probed; a failed probe disposes
// the stale handle and rebuilds it transparently, so callers never see
// the staleness.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	active    map[string]Connector
	keyLocks  map[string]*sync.Mutex
	pool      PoolConfig
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry using the given pool limits for
// every handle it opens.
func NewRegistry(pool PoolConfig, logger *slog.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		active:    make(map[string]Connector),
		keyLocks:  make(map[string]*sync.Mutex),
		pool:      pool,
		logger:    logger,
	}
}

// RegisterDriver registers a connector factory for a driver type.
func (r *Registry) RegisterDriver(driver string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[driver] = factory
}

// Acquire returns a live handle for params, reusing the cached one when
// its liveness probe succeeds. Probe-and-rebuild runs under a per-key
// lock so two concurrent requests for the same database do not both open
// a new pool.
func (r *Registry) Acquire(ctx context.Context, params model.ConnectionParams) (Connector, error) {
	params = params.Normalize()
	key := params.Key()

	lock := r.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	conn, ok := r.active[key]
	r.mu.Unlock()

	if ok {
		if err := conn.Ping(ctx); err == nil {
			return conn, nil
		}
		r.logger.Warn("cached connection failed liveness probe, rebuilding",
			"key", params.HashKey(), "database", params.Database)
		conn.Disconnect()
		r.mu.Lock()
		delete(r.active, key)
		r.mu.Unlock()
	}

	conn, err := r.connect(params)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Disconnect()
		return nil, &ConnectError{Host: params.Host, Database: params.Database, Err: err}
	}

	r.mu.Lock()
	r.active[key] = conn
	r.mu.Unlock()

	r.logger.Info("database handle created",
		"driver", params.Driver, "database", params.Database, "host", params.Host,
		"user", params.User)
	return conn, nil
}

// ReleaseAll disposes every cached handle. Used at shutdown; disposal
// errors are logged, not propagated, so one bad handle cannot block the
// rest.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, conn := range r.active {
		if err := conn.Disconnect(); err != nil {
			r.logger.Error("error disposing database handle", "key", key, "error", err)
		}
		delete(r.active, key)
	}
}

// ActiveCount returns the number of cached handles.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *Registry) connect(params model.ConnectionParams) (Connector, error) {
	r.mu.Lock()
	factory, ok := r.factories[params.Driver]
	r.mu.Unlock()
	if !ok {
		return nil, &ConnectError{
			Host:     params.Host,
			Database: params.Database,
			Err:      fmt.Errorf("unsupported driver: %s", params.Driver),
		}
	}

	conn := factory()
	if err := conn.Connect(params, r.pool); err != nil {
		return nil, &ConnectError{Host: params.Host, Database: params.Database, Err: err}
	}
	return conn, nil
}

func (r *Registry) lockFor(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.keyLocks[key] = lock
	}
	return lock
}
