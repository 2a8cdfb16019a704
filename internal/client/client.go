// Package client provides the interface CLI commands use to talk to a
// running sortgate service, and an HTTP/JSON implementation of it.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/sortgate/internal/model"
)

// GatewayClient is the interface that sortgate CLI commands use to
// communicate with the service.
type GatewayClient interface {
	// Reference data
	Items(ctx context.Context) (*RecordsResponse, error)
	TrashBins(ctx context.Context) (*RecordsResponse, error)
	TrashBinItems(ctx context.Context, trashBinID int64) (*BinItemsResponse, error)

	// Selections
	Send(ctx context.Context, w model.SelectionWrite) (*SelectionResponse, error)

	// Operations
	Status(ctx context.Context) (*StatusResponse, error)
	Sync(ctx context.Context) (*SyncResponse, error)
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// RecordsResponse is the response from Items and TrashBins.
type RecordsResponse struct {
	Items       []model.Record `json:"items"`
	Source      model.Source   `json:"source"`
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
}

// BinItemsResponse is the response from TrashBinItems.
type BinItemsResponse struct {
	TrashBinID  int64        `json:"trashbin_id"`
	Items       []string     `json:"items"`
	Source      model.Source `json:"source"`
	LastUpdated *time.Time   `json:"last_updated,omitempty"`
}

// SelectionResponse is the response from Send. TimesSelected is set when the
// write was applied; QueuedAt and PendingID when it was queued.
type SelectionResponse struct {
	Message       string       `json:"message"`
	Item          string       `json:"item"`
	Location      string       `json:"location"`
	Dirty         bool         `json:"dirty"`
	TimesSelected *int64       `json:"times_selected,omitempty"`
	Source        model.Source `json:"source"`
	QueuedAt      *time.Time   `json:"queued_at,omitempty"`
	PendingID     string       `json:"pending_id,omitempty"`
}

// Queued reports whether the selection was queued rather than applied.
func (r *SelectionResponse) Queued() bool {
	return r.Source == model.SourceQueued
}

// StatusResponse is the response from Status.
type StatusResponse struct {
	DatabaseOnline       bool       `json:"database_online"`
	CacheLastUpdated     *time.Time `json:"cache_last_updated"`
	CachedItemsCount     int        `json:"cached_items_count"`
	CachedTrashBinsCount int        `json:"cached_trashbins_count"`
	PendingPostsCount    int        `json:"pending_posts_count"`
}

// SyncResponse is the response from Sync.
type SyncResponse struct {
	Message           string `json:"message"`
	Replayed          int    `json:"replayed"`
	ItemsCount        int    `json:"items_count"`
	TrashBinsCount    int    `json:"trashbins_count"`
	PendingPostsCount int    `json:"pending_posts_count"`
}
