package gateway

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/sortgate/internal/model"
	"github.com/alfredjeanlab/sortgate/internal/pending"
	"github.com/alfredjeanlab/sortgate/internal/snapshot"
	"github.com/alfredjeanlab/sortgate/internal/store/storetest"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// recordingPublisher captures published topics and events.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

// last returns the most recent event published on topic.
func (p *recordingPublisher) last(topic string) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.topics) - 1; i >= 0; i-- {
		if p.topics[i] == topic {
			return p.events[i]
		}
	}
	return nil
}

type fixture struct {
	g     *Gateway
	db    *storetest.Accessor
	snap  *snapshot.FileStore
	queue *pending.FileQueue
	pub   *recordingPublisher
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir(), db: storetest.New(), pub: &recordingPublisher{}}
	f.reopen(t)
	return f
}

// reopen rebuilds the local stores and the gateway from the state directory,
// as a process restart would.
func (f *fixture) reopen(t *testing.T) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return fixedNow }
	f.snap = snapshot.Open(filepath.Join(f.dir, "cache.json"), snapshot.WithLogger(logger), snapshot.WithClock(clock))
	f.queue = pending.Open(filepath.Join(f.dir, "pending_posts.json"), pending.WithLogger(logger))
	f.g = New(f.db, f.snap, f.queue,
		WithPublisher(f.pub),
		WithLogger(logger),
		WithTimeout(time.Second),
		WithClock(clock),
	)
}

func (f *fixture) seed() {
	f.db.SetItems(
		model.Record{"id": int64(1), "name": "Bottle"},
		model.Record{"id": int64(2), "name": "Can"},
	)
	f.db.SetTrashBins(
		model.Record{"id": int64(3), "name": "BinA"},
		model.Record{"id": int64(4), "name": "BinB"},
	)
	f.db.SetBinItems(3, "Bottle", "Can")
	f.db.SetBinItems(4, "Can")
}

func (f *fixture) write(t *testing.T, item, location string, dirty bool) WriteResult {
	t.Helper()
	res, err := f.g.RecordSelection(context.Background(), model.SelectionWrite{Item: item, Location: location, Dirty: dirty})
	require.NoError(t, err)
	return res
}
