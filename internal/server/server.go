// Package server exposes the gateway over HTTP and the gRPC health protocol.
package server

import (
	"context"
	"log/slog"

	"github.com/alfredjeanlab/sortgate/internal/gateway"
	"github.com/alfredjeanlab/sortgate/internal/model"
)

// Backend is the part of the gateway the transports call.
type Backend interface {
	Items(ctx context.Context) (gateway.RecordsResult, error)
	TrashBins(ctx context.Context) (gateway.RecordsResult, error)
	TrashBinItems(ctx context.Context, trashBinID int64) (gateway.BinItemsResult, error)
	RecordSelection(ctx context.Context, w model.SelectionWrite) (gateway.WriteResult, error)
	Status(ctx context.Context) gateway.Status
	Sync(ctx context.Context) (gateway.SyncResult, error)
	Probe(ctx context.Context) error
}

// Compile-time check that the gateway satisfies Backend.
var _ Backend = (*gateway.Gateway)(nil)

// Server holds the transport-independent handler state.
type Server struct {
	backend Backend
	logger  *slog.Logger
	hub     *EventHub
}

// Option configures a Server.
type Option func(*Server)

// WithEventHub serves GET /events from hub. Without it the route is not
// registered.
func WithEventHub(hub *EventHub) Option {
	return func(s *Server) { s.hub = hub }
}

// New returns a Server over backend. A nil logger uses slog.Default().
func New(backend Backend, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{backend: backend, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }
