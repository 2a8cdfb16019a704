package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event topic constants
const (
	TopicSelectionApplied  = "sortgate.selection.applied"
	TopicSelectionQueued   = "sortgate.selection.queued"
	TopicQueueReplayed     = "sortgate.queue.replayed"
	TopicSnapshotRefreshed = "sortgate.snapshot.refreshed"

	// TopicAll matches every sortgate event.
	TopicAll = "sortgate.>"
)

// Envelope wraps every published event.
type Envelope struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	PublishedAt time.Time `json:"published_at"`
	Data        any       `json:"data"`
}

// NewEnvelope stamps an event with a fresh id.
func NewEnvelope(topic string, event any, at time.Time) Envelope {
	return Envelope{
		ID:          uuid.NewString(),
		Topic:       topic,
		PublishedAt: at.UTC(),
		Data:        event,
	}
}

// Event types

type SelectionApplied struct {
	Item          string `json:"item"`
	Location      string `json:"location"`
	Dirty         bool   `json:"dirty"`
	TimesSelected int64  `json:"times_selected"`
}

type SelectionQueued struct {
	ID       string    `json:"id"`
	Item     string    `json:"item"`
	Location string    `json:"location"`
	Dirty    bool      `json:"dirty"`
	QueuedAt time.Time `json:"queued_at"`
}

type QueueReplayed struct {
	AppliedIDs []string `json:"applied_ids"`
	Remaining  int      `json:"remaining"`
}

// SnapshotRefreshed names the snapshot slices that were refreshed from the
// backing store: "items", "trashBins", or "trashBinItems/<id>".
type SnapshotRefreshed struct {
	Resources   []string  `json:"resources"`
	LastUpdated time.Time `json:"last_updated"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
