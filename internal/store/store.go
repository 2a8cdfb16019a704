// Package store defines access to the relational backing store that holds the
// reference data and the selection counters.
package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/sortgate/internal/model"
)

// ErrUnavailable reports that the backing store could not be reached: the
// connection could not be acquired, the ping failed, or the attempt timed out.
var ErrUnavailable = errors.New("backing store unavailable")

// Session is one acquired connection to the backing store.
type Session interface {
	// ListItems returns every row of the items table.
	ListItems(ctx context.Context) ([]model.Record, error)
	// ListTrashBins returns every row of the trash bins table.
	ListTrashBins(ctx context.Context) ([]model.Record, error)
	// ListTrashBinItemNames returns the names of the items linked to a bin.
	ListTrashBinItemNames(ctx context.Context, trashBinID int64) ([]string, error)
	// IncrementSelection applies one selection write: the counter for
	// (item, location) is created at 1 or incremented by 1, and dirty is
	// overwritten. It returns the resulting times_selected.
	IncrementSelection(ctx context.Context, w model.SelectionWrite) (int64, error)
}

// Accessor hands out sessions scoped to a single call.
type Accessor interface {
	// WithSession acquires a session, runs fn, and releases the session on
	// every exit path. Acquisition failures wrap ErrUnavailable; errors from
	// fn are returned as is.
	WithSession(ctx context.Context, fn func(Session) error) error
	// Close releases the underlying pool.
	Close() error
}
