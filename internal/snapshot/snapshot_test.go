package snapshot

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/sortgate/internal/model"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func openTestStore(t *testing.T, path string) *FileStore {
	t.Helper()
	return Open(path,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func sampleSnapshot() model.Snapshot {
	s := model.Snapshot{
		Items: []model.Record{
			{"id": float64(1), "name": "Bottle", "category": "plastic"},
			{"id": float64(2), "name": "Newspaper", "category": "paper"},
		},
		TrashBins: []model.Record{{"id": float64(3), "name": "BinA"}},
	}
	s.SetBinItems(3, []string{"Bottle"})
	return s
}

func TestOpen_MissingDocumentIsEmpty(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "cache.json"))
	snap := s.Load()
	assert.Nil(t, snap.Items)
	assert.Nil(t, snap.TrashBins)
	assert.Nil(t, snap.TrashBinItems)
	assert.Nil(t, snap.LastUpdated)
}

func TestOpen_CorruptDocumentIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items": [`), 0o644))

	s := openTestStore(t, path)
	assert.Equal(t, model.Snapshot{}, s.Load())
}

func TestSaveThenLoad(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "cache.json"))
	in := sampleSnapshot()

	s.Save(in)
	got := s.Load()

	require.NotNil(t, got.LastUpdated)
	assert.True(t, got.LastUpdated.Equal(fixedNow))
	got.LastUpdated = nil
	assert.Equal(t, in, got)
}

func TestSaveSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	in := sampleSnapshot()
	openTestStore(t, path).Save(in)

	got := openTestStore(t, path).Load()
	require.NotNil(t, got.LastUpdated)
	assert.True(t, got.LastUpdated.Equal(fixedNow))
	got.LastUpdated = nil
	assert.Equal(t, in, got)
}

func TestCachedEmptyDiffersFromNeverCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	openTestStore(t, path).Save(model.Snapshot{Items: []model.Record{}})

	got := openTestStore(t, path).Load()
	assert.NotNil(t, got.Items, "cached-and-empty must survive a reload")
	assert.Empty(t, got.Items)
	assert.Nil(t, got.TrashBins)
}

func TestLoadReturnsCopy(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "cache.json"))
	s.Save(sampleSnapshot())

	snap := s.Load()
	snap.Items = append(snap.Items, model.Record{"id": float64(99)})
	snap.TrashBinItems[3][0] = "changed"

	again := s.Load()
	assert.Len(t, again.Items, 2)
	assert.Equal(t, []string{"Bottle"}, again.TrashBinItems[3])
}

func TestSaveFailureKeepsPreviousDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	s := openTestStore(t, path)
	s.Save(sampleSnapshot())

	// Remove the directory so the next write cannot create its temp file.
	require.NoError(t, os.RemoveAll(dir))
	s.Save(model.Snapshot{Items: []model.Record{}})

	got := s.Load()
	assert.Len(t, got.Items, 2, "failed save must not replace the snapshot in effect")
}

func TestUpdateReplacesOneSlice(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "cache.json"))
	s.Save(sampleSnapshot())

	s.Update(func(snap *model.Snapshot) {
		snap.TrashBins = []model.Record{}
	})

	got := s.Load()
	assert.Len(t, got.Items, 2)
	assert.NotNil(t, got.TrashBins)
	assert.Empty(t, got.TrashBins)
	assert.Equal(t, []string{"Bottle"}, got.TrashBinItems[3])
}

func TestConcurrentUpdatesDoNotLoseSlices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s := openTestStore(t, path)

	var wg sync.WaitGroup
	for i := int64(0); i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Update(func(snap *model.Snapshot) {
				snap.SetBinItems(id, []string{"x"})
			})
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Load().TrashBinItems, 20)
	assert.Len(t, openTestStore(t, path).Load().TrashBinItems, 20)
}

func TestOpen_LegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	legacy := `{
  "items": [[1, "Bottle", "plastic", 0], [2, "Newspaper", "paper", 1, "extra"]],
  "trashBins": [[3, "BinA"]],
  "trashBinItems": {"3": ["Bottle"]},
  "last_updated": "2025-05-01T10:11:12.123456"
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	got := openTestStore(t, path).Load()
	require.Len(t, got.Items, 2)
	assert.Equal(t, model.Record{"id": float64(1), "name": "Bottle", "category": "plastic", "dirty": float64(0)}, got.Items[0])
	assert.Equal(t, "extra", got.Items[1]["col4"])
	require.Len(t, got.TrashBins, 1)
	id, ok := got.TrashBins[0].ID()
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, []string{"Bottle"}, got.TrashBinItems[3])
	require.NotNil(t, got.LastUpdated)
	assert.Equal(t, time.Date(2025, 5, 1, 10, 11, 12, 123456000, time.UTC), *got.LastUpdated)
}

func TestOpen_LegacyObjectRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	legacy := `{"items": [{"id": 1, "name": "Bottle"}], "trashBins": [], "trashBinItems": {}, "last_updated": null}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	got := openTestStore(t, path).Load()
	assert.Equal(t, []model.Record{{"id": float64(1), "name": "Bottle"}}, got.Items)
	assert.NotNil(t, got.TrashBins)
	assert.Empty(t, got.TrashBins)
	assert.Nil(t, got.LastUpdated)
}

func TestOpen_BadFieldKeepsTheRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	doc := `{
  "items": "not a list",
  "trashBins": [{"id": 3, "name": "BinA"}],
  "trashBinItems": {"3": ["Bottle"]},
  "last_updated": "yesterday"
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	got := openTestStore(t, path).Load()
	assert.Nil(t, got.Items)
	assert.Len(t, got.TrashBins, 1)
	assert.Equal(t, []string{"Bottle"}, got.TrashBinItems[3])
	assert.Nil(t, got.LastUpdated)
}

func TestUpdate_ReportsSaveFailure(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, filepath.Join(dir, "missing", "cache.json"))

	err := s.Update(func(snap *model.Snapshot) { snap.Items = []model.Record{{"id": 1}} })
	require.Error(t, err)
	assert.Nil(t, s.Load().Items)

	ok := openTestStore(t, filepath.Join(dir, "cache.json"))
	require.NoError(t, ok.Update(func(snap *model.Snapshot) { snap.Items = []model.Record{} }))
	assert.NotNil(t, ok.Load().Items)
}
