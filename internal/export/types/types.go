package types

import (
	"strconv"
	"time"
)

// Kind is the storage class of an exported column.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindReal
)

// SQLType returns the SQLite column type of the kind.
func (k Kind) SQLType() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Column describes one exported column.
type Column struct {
	Name string
	Kind Kind
}

// Sheet is a named table of exported rows. Row values are string, int64,
// float64 or bool, matching the column kinds.
type Sheet struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// NewSheet creates an empty sheet.
func NewSheet(name string, columns ...Column) *Sheet {
	return &Sheet{Name: name, Columns: columns}
}

// AddRow appends a row.
func (s *Sheet) AddRow(values ...any) {
	s.Rows = append(s.Rows, values)
}

// Header returns the column names.
func (s *Sheet) Header() []string {
	header := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		header[i] = c.Name
	}

	return header
}

// FormatValue renders a row value as text.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', 2, 64)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case time.Time:
		return val.Format(time.DateTime)
	default:
		return ""
	}
}

// SQLValue converts a row value into a value SQLite can bind.
func SQLValue(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return val.Format(time.DateTime)
	default:
		return v
	}
}
