// Package pending holds selection writes that could not reach the backing
// store, in submission order, until a replay applies them.
package pending

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alfredjeanlab/sortgate/internal/idgen"
	"github.com/alfredjeanlab/sortgate/internal/jsonfile"
	"github.com/alfredjeanlab/sortgate/internal/model"
)

// Queue is the durable holder of write intents not yet applied upstream.
type Queue interface {
	// Enqueue appends a write submitted at the given time and persists the
	// queue. If persisting fails the entry is still held in memory and the
	// returned error describes the persist failure.
	Enqueue(w model.SelectionWrite, at time.Time) (model.PendingWrite, error)
	// List returns the queued writes, oldest first.
	List() []model.PendingWrite
	// RemoveApplied drops the entries with the given ids, persists, and
	// returns what remains.
	RemoveApplied(ids []string) []model.PendingWrite
	// Len reports the number of queued writes.
	Len() int
}

// FileQueue is a Queue persisted as a JSON array.
type FileQueue struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries []model.PendingWrite
}

var _ Queue = (*FileQueue)(nil)

// Option configures a FileQueue.
type Option func(*FileQueue)

// WithLogger sets the logger used for unreadable documents and persist failures.
func WithLogger(logger *slog.Logger) Option {
	return func(q *FileQueue) { q.logger = logger }
}

// Open loads the queue document at path. A missing or corrupt document is
// treated as an empty queue.
func Open(path string, opts ...Option) *FileQueue {
	q := &FileQueue{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(q)
	}
	q.entries = q.read()
	return q
}

// storedWrite is the on-disk entry shape. Older documents carry no id and a
// timestamp without a zone offset.
type storedWrite struct {
	ID        string `json:"id,omitempty"`
	Item      string `json:"item_name"`
	Location  string `json:"trashbin_name"`
	Dirty     bool   `json:"dirty"`
	Timestamp string `json:"timestamp"`
}

func (q *FileQueue) read() []model.PendingWrite {
	var stored []storedWrite
	if err := jsonfile.Read(q.path, &stored); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			q.logger.Warn("pending queue unreadable, starting empty", "path", q.path, "err", err)
		}
		return nil
	}

	entries := make([]model.PendingWrite, 0, len(stored))
	assigned := 0
	for _, s := range stored {
		at, err := model.ParseTimestamp(s.Timestamp)
		if err != nil {
			q.logger.Warn("pending write has bad timestamp", "item", s.Item, "location", s.Location, "err", err)
		}
		id := s.ID
		if id == "" {
			if id, err = idgen.Pending(); err != nil {
				q.logger.Error("assign pending id", "err", err)
				continue
			}
			assigned++
		}
		entries = append(entries, model.PendingWrite{
			ID:          id,
			Item:        s.Item,
			Location:    s.Location,
			Dirty:       s.Dirty,
			SubmittedAt: at,
		})
	}
	if assigned > 0 {
		q.logger.Info("assigned ids to legacy pending writes", "count", assigned)
		if err := q.persistLocked(entries); err != nil {
			q.logger.Error("pending queue persist failed", "path", q.path, "err", err)
		}
	}
	return entries
}

func (q *FileQueue) persistLocked(entries []model.PendingWrite) error {
	if entries == nil {
		entries = []model.PendingWrite{}
	}
	return jsonfile.Write(q.path, entries)
}

func (q *FileQueue) Enqueue(w model.SelectionWrite, at time.Time) (model.PendingWrite, error) {
	id, err := idgen.Pending()
	if err != nil {
		return model.PendingWrite{}, fmt.Errorf("assign pending id: %w", err)
	}
	p := model.PendingWrite{
		ID:          id,
		Item:        w.Item,
		Location:    w.Location,
		Dirty:       w.Dirty,
		SubmittedAt: at,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, p)
	if err := q.persistLocked(q.entries); err != nil {
		q.logger.Error("pending queue persist failed, write held in memory only",
			"id", p.ID, "item", p.Item, "location", p.Location, "err", err)
		return p, fmt.Errorf("persist pending queue: %w", err)
	}
	return p, nil
}

func (q *FileQueue) List() []model.PendingWrite {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.entries)
}

func (q *FileQueue) RemoveApplied(ids []string) []model.PendingWrite {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(ids) == 0 {
		return slices.Clone(q.entries)
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	q.entries = slices.DeleteFunc(q.entries, func(p model.PendingWrite) bool {
		_, ok := drop[p.ID]
		return ok
	})
	if err := q.persistLocked(q.entries); err != nil {
		q.logger.Error("pending queue persist failed", "path", q.path, "err", err)
	}
	return slices.Clone(q.entries)
}

func (q *FileQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
