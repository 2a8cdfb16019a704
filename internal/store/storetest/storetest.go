// Package storetest provides an in-memory store.Accessor for tests. It can
// be switched offline to exercise the cache and queue fallbacks.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/alfredjeanlab/sortgate/internal/model"
	"github.com/alfredjeanlab/sortgate/internal/store"
)

type selectionKey struct {
	item, location string
}

// Accessor is a fake backing store.
type Accessor struct {
	mu         sync.Mutex
	down       bool
	hang       bool
	failReads  error
	failWrites map[selectionKey]error
	items      []model.Record
	trashBins  []model.Record
	binItems   map[int64][]string
	counters   map[selectionKey]model.SelectionCounter
	sessions   int
	increments []model.SelectionWrite
}

var _ store.Accessor = (*Accessor)(nil)

// New returns an online fake with no data.
func New() *Accessor {
	return &Accessor{
		items:      []model.Record{},
		trashBins:  []model.Record{},
		binItems:   make(map[int64][]string),
		counters:   make(map[selectionKey]model.SelectionCounter),
		failWrites: make(map[selectionKey]error),
	}
}

// SetDown switches the fake offline (true) or back online (false).
func (a *Accessor) SetDown(down bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.down = down
}

// SetHang makes every query block until its context ends, as a server that
// accepts connections but never answers would.
func (a *Accessor) SetHang(hang bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hang = hang
}

// SetItems replaces the items table.
func (a *Accessor) SetItems(items ...model.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append([]model.Record{}, items...)
}

// SetTrashBins replaces the trash bins table.
func (a *Accessor) SetTrashBins(bins ...model.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trashBins = append([]model.Record{}, bins...)
}

// SetBinItems links item names to a bin.
func (a *Accessor) SetBinItems(trashBinID int64, names ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.binItems[trashBinID] = append([]string{}, names...)
}

// SetCounter seeds the counter for (item, location).
func (a *Accessor) SetCounter(item, location string, times int64, dirty bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[selectionKey{item, location}] = model.SelectionCounter{
		Item: item, Location: location, TimesSelected: times, Dirty: dirty,
	}
}

// FailReads makes every list query return err. A nil err clears the failure.
func (a *Accessor) FailReads(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failReads = err
}

// FailWrites makes IncrementSelection return err for (item, location). A nil
// err clears the failure.
func (a *Accessor) FailWrites(item, location string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err == nil {
		delete(a.failWrites, selectionKey{item, location})
		return
	}
	a.failWrites[selectionKey{item, location}] = err
}

// Counter returns the counter for (item, location) and whether it exists.
func (a *Accessor) Counter(item, location string) (model.SelectionCounter, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.counters[selectionKey{item, location}]
	return c, ok
}

// Increments returns every write applied so far, in order.
func (a *Accessor) Increments() []model.SelectionWrite {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.increments)
}

// Sessions reports how many sessions were successfully acquired.
func (a *Accessor) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions
}

func (a *Accessor) WithSession(ctx context.Context, fn func(store.Session) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	a.mu.Lock()
	if a.down {
		a.mu.Unlock()
		return fmt.Errorf("%w: connection refused", store.ErrUnavailable)
	}
	a.sessions++
	a.mu.Unlock()
	return fn(session{a})
}

func (a *Accessor) Close() error { return nil }

type session struct {
	a *Accessor
}

// stall blocks a hanging fake's query until ctx ends. It is called without
// the lock held.
func (s session) stall(ctx context.Context) error {
	s.a.mu.Lock()
	hang := s.a.hang
	s.a.mu.Unlock()
	if !hang {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

// online guards every query so a fake switched off mid-session behaves like
// a dropped connection.
func (s session) online() error {
	if s.a.down {
		return fmt.Errorf("connection reset")
	}
	return nil
}

func (s session) readable() error {
	if err := s.online(); err != nil {
		return err
	}
	return s.a.failReads
}

func (s session) ListItems(ctx context.Context) ([]model.Record, error) {
	if err := s.stall(ctx); err != nil {
		return nil, err
	}
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	if err := s.readable(); err != nil {
		return nil, err
	}
	return slices.Clone(s.a.items), nil
}

func (s session) ListTrashBins(ctx context.Context) ([]model.Record, error) {
	if err := s.stall(ctx); err != nil {
		return nil, err
	}
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	if err := s.readable(); err != nil {
		return nil, err
	}
	return slices.Clone(s.a.trashBins), nil
}

func (s session) ListTrashBinItemNames(ctx context.Context, trashBinID int64) ([]string, error) {
	if err := s.stall(ctx); err != nil {
		return nil, err
	}
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	if err := s.readable(); err != nil {
		return nil, err
	}
	names := slices.Clone(s.a.binItems[trashBinID])
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s session) IncrementSelection(ctx context.Context, w model.SelectionWrite) (int64, error) {
	if err := s.stall(ctx); err != nil {
		return 0, err
	}
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	if err := s.online(); err != nil {
		return 0, err
	}
	key := selectionKey{w.Item, w.Location}
	if err := s.a.failWrites[key]; err != nil {
		return 0, err
	}
	c := s.a.counters[key]
	c.Item, c.Location = w.Item, w.Location
	c.TimesSelected++
	c.Dirty = w.Dirty
	s.a.counters[key] = c
	s.a.increments = append(s.a.increments, w)
	return c.TimesSelected, nil
}
