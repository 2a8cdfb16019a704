package gateway

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/alfredjeanlab/sortgate/internal/events"
	"github.com/alfredjeanlab/sortgate/internal/model"
	"github.com/alfredjeanlab/sortgate/internal/store"
)

// SyncResult summarizes a forced sync.
type SyncResult struct {
	Replayed    int
	Items       int
	TrashBins   int
	TrashBinIDs []int64
	Remaining   int
	SyncedAt    time.Time
}

// Sync replays the pending queue and then refreshes items, trash bins, and
// the contents of every known bin, saving the snapshot once. Known bins are
// those already cached plus every freshly fetched bin with an integer id.
//
// An unreachable store yields an error wrapping store.ErrUnavailable; any
// other failure wraps ErrSyncFailed. There is no snapshot fallback.
func (g *Gateway) Sync(ctx context.Context) (SyncResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.syncTimeout)
	defer cancel()

	cachedIDs := g.snapshot.Load().CachedBinIDs()

	var (
		replayed []model.PendingWrite
		items    []model.Record
		bins     []model.Record
		index    map[int64][]string
		binIDs   []int64
	)
	err := g.accessor.WithSession(ctx, func(s store.Session) error {
		var err error
		if replayed, err = g.reconciler.Replay(ctx, s); err != nil {
			return fmt.Errorf("replay pending queue: %w", err)
		}
		if items, err = s.ListItems(ctx); err != nil {
			return err
		}
		if bins, err = s.ListTrashBins(ctx); err != nil {
			return err
		}
		binIDs = mergeBinIDs(cachedIDs, bins)
		index = make(map[int64][]string, len(binIDs))
		for _, id := range binIDs {
			names, err := s.ListTrashBinItemNames(ctx, id)
			if err != nil {
				return err
			}
			index[id] = names
		}
		return nil
	})
	if err = classify(err); err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return SyncResult{}, err
		}
		return SyncResult{}, fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	saveErr := g.snapshot.Update(func(snap *model.Snapshot) {
		snap.Items = items
		snap.TrashBins = bins
		for id, names := range index {
			snap.SetBinItems(id, names)
		}
	})

	res := SyncResult{
		Replayed:    len(replayed),
		Items:       len(items),
		TrashBins:   len(bins),
		TrashBinIDs: binIDs,
		Remaining:   g.queue.Len(),
		SyncedAt:    g.now().UTC(),
	}
	g.logger.Info("sync completed",
		"replayed", res.Replayed, "items", res.Items, "trash_bins", res.TrashBins,
		"indexed_bins", len(binIDs), "remaining", res.Remaining)

	if len(replayed) > 0 {
		ids := make([]string, len(replayed))
		for i, p := range replayed {
			ids[i] = p.ID
		}
		g.publish(ctx, events.TopicQueueReplayed, events.QueueReplayed{AppliedIDs: ids, Remaining: res.Remaining})
	}
	if saveErr != nil {
		return res, nil
	}
	resources := []string{"items", "trashBins"}
	for _, id := range binIDs {
		resources = append(resources, fmt.Sprintf("trashBinItems/%d", id))
	}
	g.publish(ctx, events.TopicSnapshotRefreshed, events.SnapshotRefreshed{
		Resources:   resources,
		LastUpdated: res.SyncedAt,
	})
	return res, nil
}

// Init runs once before the service accepts requests. A failed sync is
// logged and the service starts in degraded mode, serving from the snapshot.
func (g *Gateway) Init(ctx context.Context) {
	res, err := g.Sync(ctx)
	switch {
	case errors.Is(err, store.ErrUnavailable):
		g.logger.Warn("backing store unreachable at startup, serving from snapshot",
			"pending", g.queue.Len(), "err", err)
	case err != nil:
		g.logger.Error("startup sync failed, serving from snapshot", "err", err)
	default:
		g.logger.Info("startup sync done", "items", res.Items, "trash_bins", res.TrashBins, "replayed", res.Replayed)
	}
}

// mergeBinIDs returns the sorted union of cached ids and the integer ids of
// the fetched bins.
func mergeBinIDs(cached []int64, bins []model.Record) []int64 {
	ids := slices.Clone(cached)
	for _, b := range bins {
		if id, ok := b.ID(); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
