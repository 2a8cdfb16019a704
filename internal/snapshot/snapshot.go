// Package snapshot keeps the last-known-good copy of the reference data that
// the gateway serves while the backing store is unreachable.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/alfredjeanlab/sortgate/internal/jsonfile"
	"github.com/alfredjeanlab/sortgate/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store holds the single snapshot document.
type Store interface {
	// Load returns the current snapshot, or the empty snapshot if none was
	// ever saved.
	Load() model.Snapshot
	// Save replaces the snapshot wholesale and stamps its last-updated time.
	// A failed write is logged and the previous snapshot stays in effect.
	Save(snap model.Snapshot)
	// Update applies fn to a copy of the current snapshot and saves the
	// result, all within the store's exclusive section. A non-nil error means
	// the result was not persisted and the previous snapshot stays in
	// effect; the store has already logged it.
	Update(fn func(*model.Snapshot)) error
}

// FileStore is a Store persisted as one JSON document.
type FileStore struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	current model.Snapshot
}

// Compile-time check that FileStore implements Store.
var _ Store = (*FileStore)(nil)

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger used to report unreadable documents and failed writes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileStore) { s.logger = logger }
}

// WithClock overrides the time source used for last-updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) { s.now = now }
}

// Open loads the document at path. A missing or corrupt document yields the
// empty snapshot; corruption is logged, not returned.
func Open(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current = s.read()
	return s
}

func (s *FileStore) read() model.Snapshot {
	var doc storedSnapshot
	err := jsonfile.Read(s.path, &doc)
	switch {
	case err == nil:
		return s.decode(doc)
	case errors.Is(err, fs.ErrNotExist):
		return model.Snapshot{}
	default:
		s.logger.Warn("snapshot unreadable, starting empty", "path", s.path, "err", err)
		return model.Snapshot{}
	}
}

// storedSnapshot defers decoding of each field so one bad field does not
// discard the others.
type storedSnapshot struct {
	Items         jsoniter.RawMessage `json:"items"`
	TrashBins     jsoniter.RawMessage `json:"trashBins"`
	TrashBinItems jsoniter.RawMessage `json:"trashBinItems"`
	LastUpdated   jsoniter.RawMessage `json:"last_updated"`
}

func (s *FileStore) decode(doc storedSnapshot) model.Snapshot {
	var snap model.Snapshot
	var err error
	if snap.Items, err = decodeRecords(doc.Items, model.ItemColumns); err != nil {
		s.logger.Warn("snapshot items unreadable, dropping them", "path", s.path, "err", err)
	}
	if snap.TrashBins, err = decodeRecords(doc.TrashBins, model.TrashBinColumns); err != nil {
		s.logger.Warn("snapshot trash bins unreadable, dropping them", "path", s.path, "err", err)
	}
	if !isNull(doc.TrashBinItems) {
		if err := json.Unmarshal(doc.TrashBinItems, &snap.TrashBinItems); err != nil {
			snap.TrashBinItems = nil
			s.logger.Warn("snapshot bin index unreadable, dropping it", "path", s.path, "err", err)
		}
	}
	if snap.LastUpdated, err = decodeTimestamp(doc.LastUpdated); err != nil {
		s.logger.Warn("snapshot last_updated unreadable", "path", s.path, "err", err)
	}
	return snap
}

func isNull(raw jsoniter.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// decodeRecords accepts rows stored as objects or, as older documents have
// them, as positional arrays in column order.
func decodeRecords(raw jsoniter.RawMessage, columns []string) ([]model.Record, error) {
	if isNull(raw) {
		return nil, nil
	}
	var rows []any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	records := make([]model.Record, 0, len(rows))
	for i, row := range rows {
		switch v := row.(type) {
		case map[string]any:
			records = append(records, model.Record(v))
		case []any:
			records = append(records, model.RecordFromRow(columns, v))
		default:
			return nil, fmt.Errorf("row %d: unexpected %T", i, row)
		}
	}
	return records, nil
}

func decodeTimestamp(raw jsoniter.RawMessage) (*time.Time, error) {
	if isNull(raw) {
		return nil, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil, err
	}
	t, err := model.ParseTimestamp(str)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *FileStore) Load() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

func (s *FileStore) Save(snap model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.saveLocked(snap.Clone())
}

func (s *FileStore) Update(fn func(*model.Snapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.current.Clone()
	fn(&next)
	return s.saveLocked(next)
}

// saveLocked takes ownership of next.
func (s *FileStore) saveLocked(next model.Snapshot) error {
	now := s.now().UTC()
	next.LastUpdated = &now
	if err := jsonfile.Write(s.path, next); err != nil {
		s.logger.Error("snapshot save failed, keeping previous document", "path", s.path, "err", err)
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.current = next
	s.logger.Debug("snapshot saved", "path", s.path, "last_updated", now)
	return nil
}
