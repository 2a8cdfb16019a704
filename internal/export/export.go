package export

import (
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/alfredjeanlab/sortgate/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string     `json:"version"`
	Type          string     `json:"type"`
	Timestamp     time.Time  `json:"timestamp"`
	ItemCount     int        `json:"item_count"`
	TrashBinCount int        `json:"trashbin_count"`
	PendingCount  int        `json:"pending_count"`
	LastUpdated   *time.Time `json:"last_updated"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	recordSnapshot = "snapshot"
	recordPending  = "pending"
)

// ExportJSONL writes the snapshot and the pending queue as JSONL to w: a
// header, one snapshot record, then one record per pending write in queue
// order.
func ExportJSONL(w io.Writer, snap model.Snapshot, pending []model.PendingWrite, at time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       "1",
		Type:          "header",
		Timestamp:     at.UTC(),
		ItemCount:     len(snap.Items),
		TrashBinCount: len(snap.TrashBins),
		PendingCount:  len(pending),
		LastUpdated:   snap.LastUpdated,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	if err := enc.Encode(record{Type: recordSnapshot, Data: snap}); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	for _, p := range pending {
		if err := enc.Encode(record{Type: recordPending, Data: p}); err != nil {
			return fmt.Errorf("encode pending write %s: %w", p.ID, err)
		}
	}

	return nil
}
