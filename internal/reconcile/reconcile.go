// Package reconcile applies selection writes to the backing store and drains
// the pending queue.
package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/sortgate/internal/model"
	"github.com/alfredjeanlab/sortgate/internal/pending"
	"github.com/alfredjeanlab/sortgate/internal/store"
)

// Reconciler applies writes and replays the pending queue. Replays are
// serialized so no queued entry is applied twice by concurrent callers.
type Reconciler struct {
	queue  pending.Queue
	logger *slog.Logger

	replayMu sync.Mutex
}

// New returns a Reconciler draining queue. A nil logger uses slog.Default().
func New(queue pending.Queue, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{queue: queue, logger: logger}
}

// Apply increments the counter for w's (item, location), creating it at 1 if
// absent, and overwrites its dirty flag. It returns the new times_selected.
func (r *Reconciler) Apply(ctx context.Context, s store.Session, w model.SelectionWrite) (int64, error) {
	return s.IncrementSelection(ctx, w)
}

// Replay applies queued writes oldest first. An entry that fails is logged
// and stays queued; every applied entry is removed once the pass completes.
// If ctx ends mid-pass the remaining entries are left for a later replay and
// ctx's error is returned alongside what was applied.
func (r *Reconciler) Replay(ctx context.Context, s store.Session) ([]model.PendingWrite, error) {
	r.replayMu.Lock()
	defer r.replayMu.Unlock()

	entries := r.queue.List()
	if len(entries) == 0 {
		return nil, nil
	}

	var (
		applied []model.PendingWrite
		ids     []string
		ctxErr  error
	)
	for _, p := range entries {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		times, err := r.Apply(ctx, s, p.Write())
		if err != nil {
			r.logger.Warn("replay of pending write failed, keeping it queued",
				"id", p.ID, "item", p.Item, "location", p.Location, "err", err)
			continue
		}
		r.logger.Debug("replayed pending write",
			"id", p.ID, "item", p.Item, "location", p.Location, "times_selected", times)
		applied = append(applied, p)
		ids = append(ids, p.ID)
	}

	if len(ids) > 0 {
		remaining := r.queue.RemoveApplied(ids)
		r.logger.Info("pending queue replayed", "applied", len(ids), "remaining", len(remaining))
	}
	return applied, ctxErr
}
