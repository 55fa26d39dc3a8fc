// Package store provides the record storage interface with in-memory and
// SQLite implementations.
package store

import (
	"context"
	"fmt"

	"github.com/rcliao/recordbook/internal/model"
	"github.com/rcliao/recordbook/internal/notify"
)

// Backend names accepted by Open.
const (
	BackendMem    = "mem"
	BackendSQLite = "sqlite"
)

// Backends lists the accepted backend names.
var Backends = []string{BackendMem, BackendSQLite}

// Store defines the record storage interface.
//
// Operations on ids that do not exist are no-ops, never errors. A non-nil
// error only ever comes from the backend itself.
type Store interface {
	// Add allocates a fresh id and appends a record built from d.
	Add(ctx context.Context, d model.Draft) (model.Record, error)

	// Update replaces name and email of the record with id, keeping its
	// position. Returns the resulting collection.
	Update(ctx context.Context, id string, patch model.Draft) (model.Collection, error)

	// Remove drops the record with id without reordering the rest.
	// Returns the resulting collection.
	Remove(ctx context.Context, id string) (model.Collection, error)

	// Snapshot returns a copy of the collection in insertion order.
	Snapshot(ctx context.Context) (model.Collection, error)

	// Get looks up a single record.
	Get(ctx context.Context, id string) (model.Record, bool, error)

	// Stats reports collection and allocator counters.
	Stats(ctx context.Context) (*Stats, error)

	// Subscribe registers fn for change events and returns its cancel func.
	Subscribe(fn notify.Func) func()

	// Close closes the store.
	Close() error
}

// Open returns a new, empty store for the named backend.
func Open(backend string) (Store, error) {
	switch backend {
	case "", BackendMem:
		return NewMemStore(), nil
	case BackendSQLite:
		return NewSQLiteStore()
	default:
		return nil, fmt.Errorf("unknown backend %q (valid: mem, sqlite)", backend)
	}
}
