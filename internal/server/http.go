package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"

	"github.com/alfredjeanlab/sortgate/internal/gateway"
	"github.com/alfredjeanlab/sortgate/internal/model"
	"github.com/alfredjeanlab/sortgate/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response messages.
const (
	MsgProcessed  = "Data processed"
	MsgQueued     = "Data queued for later processing"
	MsgSynced     = "Sync completed successfully"
	msgNotCached  = "Database unavailable and no cached data"
	msgBinMissing = "Database unavailable and no cached data for this trashbin"
	msgStoreDown  = "Database unavailable"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
func (s *Server) NewHTTPHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/items", s.handleItems)
	r.Get("/trashBins", s.handleTrashBins)
	r.Get("/trashBinItems/{trashbin_id}", s.handleTrashBinItems)
	r.Post("/sentData/{trashbin_name}/{item_name}/{dirty}", s.handleSentData)
	r.Get("/status", s.handleStatus)
	r.Post("/sync", s.handleSync)
	r.Get("/health", s.handleHealth)
	if s.hub != nil {
		r.Get("/events", s.handleEvents)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// RecordsResponse is the body of GET /items and GET /trashBins.
type RecordsResponse struct {
	Items       []model.Record `json:"items"`
	Source      model.Source   `json:"source"`
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
}

// BinItemsResponse is the body of GET /trashBinItems/{trashbin_id}.
type BinItemsResponse struct {
	TrashBinID  int64        `json:"trashbin_id"`
	Items       []string     `json:"items"`
	Source      model.Source `json:"source"`
	LastUpdated *time.Time   `json:"last_updated,omitempty"`
}

// SelectionResponse is the body of POST /sentData/...
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

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	DatabaseOnline       bool       `json:"database_online"`
	CacheLastUpdated     *time.Time `json:"cache_last_updated"`
	CachedItemsCount     int        `json:"cached_items_count"`
	CachedTrashBinsCount int        `json:"cached_trashbins_count"`
	PendingPostsCount    int        `json:"pending_posts_count"`
}

// SyncResponse is the body of POST /sync.
type SyncResponse struct {
	Message           string `json:"message"`
	Replayed          int    `json:"replayed"`
	ItemsCount        int    `json:"items_count"`
	TrashBinsCount    int    `json:"trashbins_count"`
	PendingPostsCount int    `json:"pending_posts_count"`
}

// handleItems handles GET /items.
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.Items(r.Context())
	if err != nil {
		s.writeReadError(w, err, msgNotCached)
		return
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Items: res.Records, Source: res.Source, LastUpdated: res.LastUpdated})
}

// handleTrashBins handles GET /trashBins.
func (s *Server) handleTrashBins(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.TrashBins(r.Context())
	if err != nil {
		s.writeReadError(w, err, msgNotCached)
		return
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Items: res.Records, Source: res.Source, LastUpdated: res.LastUpdated})
}

// handleTrashBinItems handles GET /trashBinItems/{trashbin_id}.
func (s *Server) handleTrashBinItems(w http.ResponseWriter, r *http.Request) {
	id, err := parseTrashBinID(chi.URLParam(r, "trashbin_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.backend.TrashBinItems(r.Context(), id)
	if err != nil {
		s.writeReadError(w, err, msgBinMissing)
		return
	}
	writeJSON(w, http.StatusOK, BinItemsResponse{
		TrashBinID:  res.TrashBinID,
		Items:       res.Names,
		Source:      res.Source,
		LastUpdated: res.LastUpdated,
	})
}

// handleSentData handles POST /sentData/{trashbin_name}/{item_name}/{dirty}.
func (s *Server) handleSentData(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.backend.RecordSelection(r.Context(), sel)
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		s.logger.Error("record selection", "item", sel.Item, "location", sel.Location, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := SelectionResponse{
		Item:     sel.Item,
		Location: sel.Location,
		Dirty:    sel.Dirty,
		Source:   res.Source,
	}
	if res.Source == model.SourceQueued {
		resp.Message = MsgQueued
		resp.QueuedAt = res.QueuedAt
		resp.PendingID = res.PendingID
	} else {
		resp.Message = MsgProcessed
		resp.TimesSelected = &res.TimesSelected
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStatus handles GET /status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.backend.Status(r.Context())
	writeJSON(w, http.StatusOK, StatusResponse{
		DatabaseOnline:       st.DatabaseOnline,
		CacheLastUpdated:     st.CacheLastUpdated,
		CachedItemsCount:     st.CachedItemsCount,
		CachedTrashBinsCount: st.CachedTrashBinsCount,
		PendingPostsCount:    st.PendingPostsCount,
	})
}

// handleSync handles POST /sync.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.Sync(r.Context())
	switch {
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, msgStoreDown)
		return
	case err != nil:
		s.logger.Error("forced sync failed", "err", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Sync failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{
		Message:           MsgSynced,
		Replayed:          res.Replayed,
		ItemsCount:        res.Items,
		TrashBinsCount:    res.TrashBins,
		PendingPostsCount: res.Remaining,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeReadError(w http.ResponseWriter, err error, notCachedMsg string) {
	if errors.Is(err, gateway.ErrNotCached) {
		writeError(w, http.StatusServiceUnavailable, notCachedMsg)
		return
	}
	s.logger.Error("read failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func parseTrashBinID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, inputError(fmt.Sprintf("invalid trashbin_id %q: must be an integer", raw))
	}
	return id, nil
}

// parseSelection reads the three path segments of a selection write.
func parseSelection(r *http.Request) (model.SelectionWrite, error) {
	location, err := pathParam(r, "trashbin_name")
	if err != nil {
		return model.SelectionWrite{}, err
	}
	item, err := pathParam(r, "item_name")
	if err != nil {
		return model.SelectionWrite{}, err
	}
	dirty, err := model.ParseDirty(chi.URLParam(r, "dirty"))
	if err != nil {
		return model.SelectionWrite{}, inputError(err.Error())
	}
	return model.SelectionWrite{Item: item, Location: location, Dirty: dirty}, nil
}

// pathParam returns a decoded path segment. chi hands back the escaped form
// when the request path contains escapes.
func pathParam(r *http.Request, name string) (string, error) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", inputError(fmt.Sprintf("invalid %s: %v", name, err))
	}
	return v, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
