package model

import (
	"strings"
	"testing"
	"time"
)

func TestRecord_ID(t *testing.T) {
	for _, tc := range []struct {
		name   string
		rec    Record
		want   int64
		wantOK bool
	}{
		{"Int64", Record{"id": int64(7)}, 7, true},
		{"Int", Record{"id": 3}, 3, true},
		{"Float", Record{"id": float64(12)}, 12, true},
		{"Fractional", Record{"id": 1.5}, 0, false},
		{"String", Record{"id": "7"}, 0, false},
		{"Missing", Record{"name": "Bottle"}, 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.rec.ID()
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("ID() = (%d, %v), want (%d, %v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestSnapshot_CloneIsIndependent(t *testing.T) {
	now := time.Now().UTC()
	orig := Snapshot{
		Items:       []Record{{"id": int64(1), "name": "Bottle"}},
		LastUpdated: &now,
	}
	orig.SetBinItems(4, []string{"Bottle"})

	c := orig.Clone()
	c.Items = append(c.Items, Record{"id": int64(2)})
	c.TrashBinItems[4][0] = "Can"
	c.SetBinItems(5, nil)
	*c.LastUpdated = now.Add(time.Hour)

	if len(orig.Items) != 1 {
		t.Fatalf("original items changed: %v", orig.Items)
	}
	if orig.TrashBinItems[4][0] != "Bottle" {
		t.Fatalf("original index changed: %v", orig.TrashBinItems)
	}
	if _, ok := orig.BinItems(5); ok {
		t.Fatal("original gained bin 5")
	}
	if !orig.LastUpdated.Equal(now) {
		t.Fatalf("original timestamp changed: %v", orig.LastUpdated)
	}
}

func TestSnapshot_SetBinItemsNilBecomesEmpty(t *testing.T) {
	var s Snapshot
	s.SetBinItems(9, nil)
	names, ok := s.BinItems(9)
	if !ok {
		t.Fatal("expected bin 9 to be cached")
	}
	if names == nil || len(names) != 0 {
		t.Fatalf("expected cached-and-empty, got %#v", names)
	}
}

func TestSnapshot_CachedBinIDsSorted(t *testing.T) {
	var s Snapshot
	for _, id := range []int64{9, 2, 5} {
		s.SetBinItems(id, []string{"x"})
	}
	got := s.CachedBinIDs()
	if len(got) != 3 || got[0] != 2 || got[1] != 5 || got[2] != 9 {
		t.Fatalf("CachedBinIDs() = %v", got)
	}
}

func TestPendingWrite_Write(t *testing.T) {
	p := PendingWrite{ID: "pw-1", Item: "Bottle", Location: "BinA", Dirty: true}
	w := p.Write()
	if w != (SelectionWrite{Item: "Bottle", Location: "BinA", Dirty: true}) {
		t.Fatalf("Write() = %+v", w)
	}
}

func TestSource_String(t *testing.T) {
	for _, tc := range []struct {
		src  Source
		want string
	}{
		{SourceDatabase, "database"},
		{SourceCache, "cache"},
		{SourceQueued, "queued"},
	} {
		if got := tc.src.String(); got != tc.want {
			t.Errorf("Source(%q).String() = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestValidateSelection(t *testing.T) {
	long := strings.Repeat("x", maxNameLength+1)
	for _, tc := range []struct {
		name       string
		write      SelectionWrite
		wantFields []string
	}{
		{"Valid", SelectionWrite{Item: "Bottle", Location: "BinA"}, nil},
		{"MissingItem", SelectionWrite{Item: " ", Location: "BinA"}, []string{"item"}},
		{"MissingBoth", SelectionWrite{}, []string{"item", "location"}},
		{"LocationTooLong", SelectionWrite{Item: "Bottle", Location: long}, []string{"location"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSelection(tc.write)
			if len(tc.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}
			if len(ve.Errors) != len(tc.wantFields) {
				t.Fatalf("expected %d field errors, got %v", len(tc.wantFields), ve.Errors)
			}
			for i, f := range tc.wantFields {
				if ve.Errors[i].Field != f {
					t.Errorf("error %d field = %q, want %q", i, ve.Errors[i].Field, f)
				}
			}
		})
	}
}

func TestParseDirty(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"False", false, false},
		{"1", true, false},
		{"0", false, false},
		{"yes", true, false},
		{"off", false, false},
		{"maybe", false, true},
		{"", false, true},
	} {
		got, err := ParseDirty(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDirty(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseDirty(%q) = (%v, %v), want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2026-03-14T09:30:00Z", want: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)},
		{in: "2026-03-14T10:30:00+01:00", want: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)},
		{in: "2025-05-01T10:11:12.123456", want: time.Date(2025, 5, 1, 10, 11, 12, 123456000, time.UTC)},
		{in: "2025-05-01 10:11:12", want: time.Date(2025, 5, 1, 10, 11, 12, 0, time.UTC)},
		{in: "yesterday", wantErr: true},
	} {
		got, err := ParseTimestamp(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimestamp(%q) = %v, want error", tc.in, got)
			}
			continue
		}
		if err != nil || !got.Equal(tc.want) {
			t.Errorf("ParseTimestamp(%q) = (%v, %v), want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestRecordFromRow(t *testing.T) {
	got := RecordFromRow(ItemColumns, []any{float64(1), "Bottle", "plastic", false, "x"})
	want := Record{"id": float64(1), "name": "Bottle", "category": "plastic", "dirty": false, "col4": "x"}
	if len(got) != len(want) {
		t.Fatalf("RecordFromRow = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("RecordFromRow[%q] = %v, want %v", k, got[k], v)
		}
	}
}
