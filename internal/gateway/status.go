package gateway

import (
	"context"
	"time"

	"github.com/alfredjeanlab/sortgate/internal/pending"
	"github.com/alfredjeanlab/sortgate/internal/snapshot"
	"github.com/alfredjeanlab/sortgate/internal/store"
)

// Status is a read-only view of the gateway's health.
type Status struct {
	DatabaseOnline       bool
	CacheLastUpdated     *time.Time
	CachedItemsCount     int
	CachedTrashBinsCount int
	PendingPostsCount    int
}

// StatusReporter reports reachability, snapshot staleness, and queue depth.
// It never replays, refreshes, or writes anything.
type StatusReporter struct {
	accessor store.Accessor
	snapshot snapshot.Store
	queue    pending.Queue
	timeout  time.Duration
}

func NewStatusReporter(accessor store.Accessor, snap snapshot.Store, queue pending.Queue, timeout time.Duration) *StatusReporter {
	return &StatusReporter{accessor: accessor, snapshot: snap, queue: queue, timeout: timeout}
}

// Probe acquires and releases a session.
func (r *StatusReporter) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return classify(r.accessor.WithSession(ctx, func(store.Session) error { return nil }))
}

func (r *StatusReporter) Report(ctx context.Context) Status {
	snap := r.snapshot.Load()
	return Status{
		DatabaseOnline:       r.Probe(ctx) == nil,
		CacheLastUpdated:     snap.LastUpdated,
		CachedItemsCount:     len(snap.Items),
		CachedTrashBinsCount: len(snap.TrashBins),
		PendingPostsCount:    r.queue.Len(),
	}
}

// Status reports the gateway's current health.
func (g *Gateway) Status(ctx context.Context) Status {
	return g.status.Report(ctx)
}

// Probe reports whether the backing store is reachable right now.
func (g *Gateway) Probe(ctx context.Context) error {
	return g.status.Probe(ctx)
}
