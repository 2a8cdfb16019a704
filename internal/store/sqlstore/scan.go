package sqlstore

import (
	"strconv"
	"strings"

	"github.com/alfredjeanlab/sortgate/internal/model"
)

// normalizeRecord converts driver byte slices so records encode as text
// rather than base64. MySQL's text protocol returns numbers as bytes too;
// those are parsed back using the column's database type.
func normalizeRecord(row map[string]any, types map[string]string) model.Record {
	rec := make(model.Record, len(row))
	for col, v := range row {
		if b, ok := v.([]byte); ok {
			rec[col] = textValue(string(b), types[col])
			continue
		}
		rec[col] = v
	}
	return rec
}

func textValue(s, dbType string) any {
	switch strings.TrimPrefix(strings.ToUpper(dbType), "UNSIGNED ") {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "DECIMAL", "FLOAT", "DOUBLE":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
