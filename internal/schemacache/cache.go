// Package schemacache holds per-database schema snapshots behind a TTL so
// repeated chat turns against the same database do not re-introspect it.
package schemacache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/askdb/askdb/internal/connector"
	"github.com/askdb/askdb/internal/model"
)

// DefaultTTL is how long a snapshot stays fresh before the next read
// triggers re-introspection.
const DefaultTTL = 5 * time.Minute

type entry struct {
	snapshot  *model.SchemaSnapshot
	fetchedAt time.Time
}

// Cache caches introspected schema snapshots keyed by connection identity.
// Concurrent reads of an expired key collapse into a single introspection
// via singleflight.
type Cache struct {
	registry *connector.Registry
	ttl      time.Duration
	logger   *slog.Logger

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]entry
}

// New creates a Cache reading snapshots through the given registry. A zero
// or negative ttl falls back to DefaultTTL.
func New(registry *connector.Registry, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		registry: registry,
		ttl:      ttl,
		logger:   logger,
		entries:  make(map[string]entry),
	}
}

// Get returns the cached snapshot for params, introspecting the database
// when the entry is missing or stale. Introspection failures degrade to an
// empty snapshot instead of an error so callers can still assemble a
// prompt; the failure is logged and nothing is cached, so the next read
// retries.
func (c *Cache) Get(ctx context.Context, params model.ConnectionParams) *model.SchemaSnapshot {
	params = params.Normalize()
	key := params.Key()

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok && time.Since(cached.fetchedAt) < c.ttl {
		return cached.snapshot
	}

	snap, err := c.Refresh(ctx, params)
	if err != nil {
		c.logger.Warn("schema introspection failed, continuing with empty snapshot",
			"database", params.Database, "error", err)
		return model.EmptySnapshot()
	}
	return snap
}

// Refresh introspects the database now and replaces the cached entry,
// bypassing the TTL. Unlike Get it surfaces the introspection error.
func (c *Cache) Refresh(ctx context.Context, params model.ConnectionParams) (*model.SchemaSnapshot, error) {
	params = params.Normalize()
	key := params.Key()

	v, err, _ := c.group.Do(key, func() (any, error) {
		conn, err := c.registry.Acquire(ctx, params)
		if err != nil {
			return nil, err
		}
		snap, err := conn.IntrospectSchema(ctx)
		if err != nil {
			return nil, err
		}
		snap.CapturedAt = time.Now().UTC()

		c.mu.Lock()
		c.entries[key] = entry{snapshot: snap, fetchedAt: time.Now()}
		c.mu.Unlock()

		c.logger.Info("schema snapshot refreshed",
			"database", params.Database, "tables", len(snap.Tables))
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.SchemaSnapshot), nil
}

// Invalidate drops the cached snapshot for one connection.
func (c *Cache) Invalidate(params model.ConnectionParams) {
	key := params.Normalize().Key()
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll drops every cached snapshot.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	return n
}

// Len returns the number of cached snapshots.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
