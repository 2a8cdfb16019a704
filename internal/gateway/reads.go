package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/sortgate/internal/events"
	"github.com/alfredjeanlab/sortgate/internal/model"
	"github.com/alfredjeanlab/sortgate/internal/store"
)

// RecordsResult is the answer to an items or trash bins read. LastUpdated is
// set only when Source is model.SourceCache.
type RecordsResult struct {
	Records     []model.Record
	Source      model.Source
	LastUpdated *time.Time
}

// BinItemsResult is the answer to a bin contents read.
type BinItemsResult struct {
	TrashBinID  int64
	Names       []string
	Source      model.Source
	LastUpdated *time.Time
}

// Items returns every item.
func (g *Gateway) Items(ctx context.Context) (RecordsResult, error) {
	recs, src, updated, err := read(ctx, g, "items",
		func(ctx context.Context, s store.Session) ([]model.Record, error) { return s.ListItems(ctx) },
		func(snap *model.Snapshot, recs []model.Record) { snap.Items = recs },
		func(snap model.Snapshot) ([]model.Record, bool) { return snap.Items, snap.Items != nil },
	)
	if err != nil {
		return RecordsResult{}, err
	}
	return RecordsResult{Records: recs, Source: src, LastUpdated: updated}, nil
}

// TrashBins returns every trash bin.
func (g *Gateway) TrashBins(ctx context.Context) (RecordsResult, error) {
	recs, src, updated, err := read(ctx, g, "trashBins",
		func(ctx context.Context, s store.Session) ([]model.Record, error) { return s.ListTrashBins(ctx) },
		func(snap *model.Snapshot, recs []model.Record) { snap.TrashBins = recs },
		func(snap model.Snapshot) ([]model.Record, bool) { return snap.TrashBins, snap.TrashBins != nil },
	)
	if err != nil {
		return RecordsResult{}, err
	}
	return RecordsResult{Records: recs, Source: src, LastUpdated: updated}, nil
}

// TrashBinItems returns the names of the items linked to one bin.
func (g *Gateway) TrashBinItems(ctx context.Context, trashBinID int64) (BinItemsResult, error) {
	names, src, updated, err := read(ctx, g, fmt.Sprintf("trashBinItems/%d", trashBinID),
		func(ctx context.Context, s store.Session) ([]string, error) {
			return s.ListTrashBinItemNames(ctx, trashBinID)
		},
		func(snap *model.Snapshot, names []string) { snap.SetBinItems(trashBinID, names) },
		func(snap model.Snapshot) ([]string, bool) { return snap.BinItems(trashBinID) },
	)
	if err != nil {
		return BinItemsResult{}, err
	}
	return BinItemsResult{TrashBinID: trashBinID, Names: names, Source: src, LastUpdated: updated}, nil
}

// read is the store-first, snapshot-fallback path shared by every resource.
// A fresh result replaces only its own slice of the snapshot.
func read[T any](
	ctx context.Context,
	g *Gateway,
	resource string,
	query func(context.Context, store.Session) (T, error),
	save func(*model.Snapshot, T),
	cached func(model.Snapshot) (T, bool),
) (T, model.Source, *time.Time, error) {
	var fresh T
	err := g.live(ctx, func(ctx context.Context, s store.Session) error {
		var err error
		fresh, err = query(ctx, s)
		return err
	})
	if err == nil {
		if g.snapshot.Update(func(snap *model.Snapshot) { save(snap, fresh) }) == nil {
			g.publish(ctx, events.TopicSnapshotRefreshed, events.SnapshotRefreshed{
				Resources:   []string{resource},
				LastUpdated: g.now().UTC(),
			})
		}
		return fresh, model.SourceDatabase, nil, nil
	}

	g.logger.Warn("backing store read failed, serving from snapshot", "resource", resource, "err", err)
	snap := g.snapshot.Load()
	v, ok := cached(snap)
	if !ok {
		var zero T
		return zero, "", nil, fmt.Errorf("%s: %w", resource, ErrNotCached)
	}
	return v, model.SourceCache, snap.LastUpdated, nil
}
