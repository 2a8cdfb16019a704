package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/sortgate/internal/model"
)

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(&buf, model.Snapshot{}, nil, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines (header + snapshot), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.ItemCount != 0 || h.PendingCount != 0 || h.LastUpdated != nil {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_SnapshotAndPending(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := model.Snapshot{
		Items:       []model.Record{{"id": float64(1), "name": "Bottle"}, {"id": float64(2), "name": "Can"}},
		TrashBins:   []model.Record{{"id": float64(7), "name": "Glass"}},
		LastUpdated: &updated,
	}
	snap.SetBinItems(7, []string{"Bottle"})
	pending := []model.PendingWrite{
		{ID: "pw-1", Item: "Bottle", Location: "Glass", SubmittedAt: updated},
		{ID: "pw-2", Item: "Can", Location: "Metal", Dirty: true, SubmittedAt: updated.Add(time.Minute)},
	}

	var buf bytes.Buffer
	if err := ExportJSONL(&buf, snap, pending, updated.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// 1 header + 1 snapshot + 2 pending = 4 lines
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.ItemCount != 2 || h.TrashBinCount != 1 || h.PendingCount != 2 {
		t.Fatalf("header counts: items=%d bins=%d pending=%d", h.ItemCount, h.TrashBinCount, h.PendingCount)
	}
	if h.LastUpdated == nil || !h.LastUpdated.Equal(updated) {
		t.Fatalf("header last_updated = %v, want %v", h.LastUpdated, updated)
	}

	var snapLine struct {
		Type string         `json:"type"`
		Data model.Snapshot `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &snapLine); err != nil {
		t.Fatalf("unmarshal snapshot line: %v", err)
	}
	if snapLine.Type != recordSnapshot {
		t.Fatalf("expected snapshot type, got %q", snapLine.Type)
	}
	if names, ok := snapLine.Data.BinItems(7); !ok || len(names) != 1 || names[0] != "Bottle" {
		t.Fatalf("bin 7 names = %v (cached %v)", names, ok)
	}

	// Pending records keep queue order.
	for i, want := range []string{"pw-1", "pw-2"} {
		var rec struct {
			Type string             `json:"type"`
			Data model.PendingWrite `json:"data"`
		}
		if err := json.Unmarshal([]byte(lines[2+i]), &rec); err != nil {
			t.Fatalf("unmarshal pending line %d: %v", i, err)
		}
		if rec.Type != recordPending || rec.Data.ID != want {
			t.Fatalf("line %d = %s %s, want pending %s", 2+i, rec.Type, rec.Data.ID, want)
		}
	}
}

func TestExportJSONL_NoHTMLEscaping(t *testing.T) {
	pending := []model.PendingWrite{{ID: "pw-1", Item: "Tin <&> Foil", Location: "Metal"}}

	var buf bytes.Buffer
	if err := ExportJSONL(&buf, model.Snapshot{}, pending, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Tin <&> Foil") {
		t.Fatalf("expected unescaped item name in output:\n%s", buf.String())
	}
}

func nonEmptyLines(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
