package model

import "time"

// SelectionWrite records that an item was placed at a location once.
// Location is the trash bin name.
type SelectionWrite struct {
	Item     string `json:"item_name"`
	Location string `json:"trashbin_name"`
	Dirty    bool   `json:"dirty"`
}

// SelectionCounter is the upstream counter row keyed by (item, location).
type SelectionCounter struct {
	Item          string `json:"item"`
	Location      string `json:"location"`
	TimesSelected int64  `json:"times_selected"`
	Dirty         bool   `json:"dirty"`
}

// PendingWrite is a selection that could not reach the backing store when it
// was submitted. It lives in the pending queue until a replay applies it.
type PendingWrite struct {
	ID          string    `json:"id"`
	Item        string    `json:"item_name"`
	Location    string    `json:"trashbin_name"`
	Dirty       bool      `json:"dirty"`
	SubmittedAt time.Time `json:"timestamp"`
}

// Write returns the selection this pending entry stands for.
func (p PendingWrite) Write() SelectionWrite {
	return SelectionWrite{Item: p.Item, Location: p.Location, Dirty: p.Dirty}
}
