package model

import "fmt"

// Record is one row of a reference table (items, trash bins) as stored
// upstream, keyed by column name. The gateway never interprets it beyond
// reading the "id" column.
type Record map[string]any

// ID returns the record's integer "id" column, if it has one.
func (r Record) ID() (int64, bool) {
	switch v := r["id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		// Documents decoded from JSON carry numbers as float64.
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

// Source tags where a response's data came from.
type Source string

const (
	SourceDatabase Source = "database"
	SourceCache    Source = "cache"
	SourceQueued   Source = "queued"
)

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// Column names for rows stored positionally, as SELECT * returned them.
var (
	ItemColumns     = []string{"id", "name", "category", "dirty"}
	TrashBinColumns = []string{"id", "name"}
)

// RecordFromRow names the values of a positional row. Values past the known
// columns are kept under "colN", N being the zero-based position.
func RecordFromRow(columns []string, row []any) Record {
	r := make(Record, len(row))
	for i, v := range row {
		if i < len(columns) {
			r[columns[i]] = v
		} else {
			r[fmt.Sprintf("col%d", i)] = v
		}
	}
	return r
}
