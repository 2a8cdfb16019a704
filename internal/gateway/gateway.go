// Package gateway sits between the API handlers and the backing store. Reads
// go to the store first and fall back to the snapshot; writes go to the store
// first and fall back to the pending queue.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/sortgate/internal/events"
	"github.com/alfredjeanlab/sortgate/internal/pending"
	"github.com/alfredjeanlab/sortgate/internal/reconcile"
	"github.com/alfredjeanlab/sortgate/internal/snapshot"
	"github.com/alfredjeanlab/sortgate/internal/store"
)

var (
	// ErrNotCached is returned by a read when the store is unreachable and the
	// resource was never cached.
	ErrNotCached = errors.New("resource not cached")
	// ErrSyncFailed wraps a forced sync failure other than an unreachable store.
	ErrSyncFailed = errors.New("sync failed")
)

const (
	defaultStoreTimeout = 3 * time.Second
	defaultSyncTimeout  = 30 * time.Second
)

// Gateway implements the resilient read and write paths.
type Gateway struct {
	accessor   store.Accessor
	snapshot   snapshot.Store
	queue      pending.Queue
	reconciler *reconcile.Reconciler
	publisher  events.Publisher
	status     *StatusReporter
	logger     *slog.Logger

	timeout     time.Duration
	syncTimeout time.Duration
	now         func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithPublisher sets the event publisher. The default publishes nothing.
func WithPublisher(p events.Publisher) Option {
	return func(g *Gateway) { g.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// WithTimeout bounds every read or write attempt against the backing store.
// An attempt that runs out of time counts as the store being unreachable.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithSyncTimeout bounds a forced sync, which refreshes every resource in
// one session.
func WithSyncTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.syncTimeout = d }
}

// WithClock overrides the time source used for queue timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New returns a Gateway over the given accessor and local stores.
func New(accessor store.Accessor, snap snapshot.Store, queue pending.Queue, opts ...Option) *Gateway {
	g := &Gateway{
		accessor:    accessor,
		snapshot:    snap,
		queue:       queue,
		publisher:   &events.NoopPublisher{},
		logger:      slog.Default(),
		timeout:     defaultStoreTimeout,
		syncTimeout: defaultSyncTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.reconciler = reconcile.New(queue, g.logger)
	g.status = NewStatusReporter(accessor, snap, queue, g.timeout)
	return g
}

// live runs fn in a fresh session bounded by the store timeout. The pending
// queue is replayed first so every successful contact drains it.
func (g *Gateway) live(ctx context.Context, fn func(context.Context, store.Session) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	err := g.accessor.WithSession(ctx, func(s store.Session) error {
		g.replay(ctx, s)
		return fn(ctx, s)
	})
	return classify(err)
}

// replay drains the pending queue, logging rather than failing.
func (g *Gateway) replay(ctx context.Context, s store.Session) {
	applied, err := g.reconciler.Replay(ctx, s)
	if err != nil {
		g.logger.Warn("pending queue replay interrupted", "applied", len(applied), "err", err)
	}
	if len(applied) == 0 {
		return
	}
	ids := make([]string, len(applied))
	for i, p := range applied {
		ids[i] = p.ID
	}
	g.publish(ctx, events.TopicQueueReplayed, events.QueueReplayed{
		AppliedIDs: ids,
		Remaining:  g.queue.Len(),
	})
}

func (g *Gateway) publish(ctx context.Context, topic string, event any) {
	if err := g.publisher.Publish(ctx, topic, event); err != nil {
		g.logger.Warn("event publish failed", "topic", topic, "err", err)
	}
}

// classify marks deadline expiry as unavailability.
func classify(err error) error {
	if err == nil || errors.Is(err, store.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return err
}
