// Package memstore holds the in-memory observation collection. Writes build a
// new immutable snapshot and publish it atomically, so readers never block and
// never see a partially applied insert.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
	"github.com/google/uuid"
)

// IDGenerator returns a fresh record identifier.
type IDGenerator func() string

// Option configures a Collection.
type Option func(*Collection)

// WithIDGenerator overrides the default random UUID identifiers.
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *Collection) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// Collection is the single observation store. It implements pipeline.Store
// and analytics.SnapshotSource.
type Collection struct {
	mu       sync.Mutex // serializes writers
	snapshot atomic.Pointer[domain.Table]
	used     map[string]struct{}
	newID    IDGenerator
}

// New creates an empty collection.
func New(opts ...Option) *Collection {
	c := &Collection{
		used:  make(map[string]struct{}),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snapshot.Store(domain.NewTable(nil))
	return c
}

// InsertMany assigns an identifier to every record, appends them in order, and
// publishes the new snapshot. It returns the records as stored.
func (c *Collection) InsertMany(ctx context.Context, records []domain.Observation) ([]domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]domain.Observation, len(records))
	assigned := make(map[string]struct{}, len(records))
	for i, r := range records {
		id, err := c.nextID(assigned)
		if err != nil {
			return nil, err
		}
		assigned[id] = struct{}{}
		stored[i] = domain.Observation{ID: id, Fields: r.Fields}
	}

	c.snapshot.Store(c.snapshot.Load().Append(stored))
	for id := range assigned {
		c.used[id] = struct{}{}
	}
	return stored, nil
}

// nextID draws identifiers until one is unused. A generator that keeps
// repeating itself is an error rather than an endless loop.
func (c *Collection) nextID(pending map[string]struct{}) (string, error) {
	const maxAttempts = 8
	for range maxAttempts {
		id := c.newID()
		if id == "" {
			continue
		}
		if _, dup := c.used[id]; dup {
			continue
		}
		if _, dup := pending[id]; dup {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("generate record id: no unique id after %d attempts", maxAttempts)
}

// CreateIndex adds a secondary index on field to the current snapshot.
func (c *Collection) CreateIndex(field string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := c.snapshot.Load().WithIndex(field)
	if err != nil {
		return err
	}
	c.snapshot.Store(next)
	return nil
}

// Find evaluates a range query against the current snapshot.
func (c *Collection) Find(q domain.RangeQuery) (domain.QueryResult, error) {
	return domain.EvaluateRange(c.Snapshot(), q)
}

// Snapshot returns the current immutable table.
func (c *Collection) Snapshot() *domain.Table {
	return c.snapshot.Load()
}

// Len returns the number of stored observations.
func (c *Collection) Len() int {
	return c.Snapshot().Len()
}
