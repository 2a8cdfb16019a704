package model

import (
	"maps"
	"slices"
	"time"
)

// Snapshot is the last-known-good copy of the reference data. A nil
// collection means the resource was never cached; an empty one means it was
// cached and empty.
type Snapshot struct {
	Items         []Record           `json:"items"`
	TrashBins     []Record           `json:"trashBins"`
	TrashBinItems map[int64][]string `json:"trashBinItems"`
	LastUpdated   *time.Time         `json:"last_updated"`
}

// Clone returns a copy whose slices and index can be modified without
// affecting s. Records themselves are shared; they are never mutated.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Items:     slices.Clone(s.Items),
		TrashBins: slices.Clone(s.TrashBins),
	}
	if s.TrashBinItems != nil {
		out.TrashBinItems = make(map[int64][]string, len(s.TrashBinItems))
		for id, names := range s.TrashBinItems {
			out.TrashBinItems[id] = slices.Clone(names)
		}
	}
	if s.LastUpdated != nil {
		t := *s.LastUpdated
		out.LastUpdated = &t
	}
	return out
}

// BinItems returns the cached item names for a bin and whether the bin was
// ever cached.
func (s Snapshot) BinItems(trashBinID int64) ([]string, bool) {
	names, ok := s.TrashBinItems[trashBinID]
	return names, ok
}

// SetBinItems stores the item names for one bin, allocating the index if
// needed.
func (s *Snapshot) SetBinItems(trashBinID int64, names []string) {
	if s.TrashBinItems == nil {
		s.TrashBinItems = make(map[int64][]string)
	}
	if names == nil {
		names = []string{}
	}
	s.TrashBinItems[trashBinID] = names
}

// CachedBinIDs returns the ids of every bin with a cached item index, sorted.
func (s Snapshot) CachedBinIDs() []int64 {
	return slices.Sorted(maps.Keys(s.TrashBinItems))
}
