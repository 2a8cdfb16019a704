package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/sortgate/internal/events"
	"github.com/alfredjeanlab/sortgate/internal/model"
	"github.com/alfredjeanlab/sortgate/internal/store"
)

// WriteResult is the outcome of recording a selection. TimesSelected is set
// when Source is model.SourceDatabase; QueuedAt and PendingID when it is
// model.SourceQueued.
type WriteResult struct {
	Write         model.SelectionWrite
	Source        model.Source
	TimesSelected int64
	QueuedAt      *time.Time
	PendingID     string
}

// RecordSelection applies one selection write. When the store cannot take it
// the write is queued for a later replay and the call still succeeds.
func (g *Gateway) RecordSelection(ctx context.Context, w model.SelectionWrite) (WriteResult, error) {
	if err := model.ValidateSelection(w); err != nil {
		return WriteResult{}, err
	}

	var times int64
	err := g.live(ctx, func(ctx context.Context, s store.Session) error {
		var err error
		times, err = g.reconciler.Apply(ctx, s, w)
		return err
	})
	if err == nil {
		g.logger.Info("selection recorded", "item", w.Item, "location", w.Location, "times_selected", times)
		g.publish(ctx, events.TopicSelectionApplied, events.SelectionApplied{
			Item:          w.Item,
			Location:      w.Location,
			Dirty:         w.Dirty,
			TimesSelected: times,
		})
		return WriteResult{Write: w, Source: model.SourceDatabase, TimesSelected: times}, nil
	}

	g.logger.Warn("backing store write failed, queueing selection",
		"item", w.Item, "location", w.Location, "err", err)
	at := g.now().UTC()
	p, qerr := g.queue.Enqueue(w, at)
	if p.ID == "" {
		return WriteResult{}, fmt.Errorf("queue selection: %w", qerr)
	}
	// A persist failure leaves p in memory only; the queue has logged it.
	g.publish(ctx, events.TopicSelectionQueued, events.SelectionQueued{
		ID:       p.ID,
		Item:     w.Item,
		Location: w.Location,
		Dirty:    w.Dirty,
		QueuedAt: at,
	})
	return WriteResult{Write: w, Source: model.SourceQueued, QueuedAt: &at, PendingID: p.ID}, nil
}
