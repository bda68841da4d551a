// Package frame provides the typed tabular value passed between the file
// parser, the schema inferencer and the model pipeline. A Frame is the
// in-memory equivalent of one store table: named, typed columns plus rows.
package frame

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Type is a store column type inferred for a frame column.
type Type string

const (
	Integer   Type = "INTEGER"
	Float     Type = "FLOAT"
	Timestamp Type = "TIMESTAMP"
	Varchar   Type = "VARCHAR"
)

// Column describes one frame column.
type Column struct {
	Name string
	Type Type
}

// Frame holds typed columns and row data. Cell values are int64, float64,
// time.Time, string or nil, matching the column Type.
type Frame struct {
	Columns []Column
	Rows    [][]any
}

// ColumnNames returns the names of all columns in order.
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// NumericColumns returns the names of INTEGER and FLOAT columns in order.
func (f *Frame) NumericColumns() []string {
	var res []string
	for _, c := range f.Columns {
		if c.Type == Integer || c.Type == Float {
			res = append(res, c.Name)
		}
	}
	return res
}

// FloatColumn extracts the named column as float64 values. Non-numeric
// cells and nils become NaN; the caller decides how to fill them.
func (f *Frame) FloatColumn(name string) ([]float64, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not in frame", name)
	}
	res := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		res[i] = toFloat(row[idx])
	}
	return res, nil
}

// Matrix extracts the given columns as a row-major [][]float64 with NaN
// for missing values.
func (f *Frame) Matrix(cols []string) ([][]float64, error) {
	idxs := make([]int, len(cols))
	for i, name := range cols {
		idx := f.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("column %q not in frame", name)
		}
		idxs[i] = idx
	}
	res := make([][]float64, len(f.Rows))
	for i, row := range f.Rows {
		vec := make([]float64, len(idxs))
		for j, idx := range idxs {
			vec[j] = toFloat(row[idx])
		}
		res[i] = vec
	}
	return res, nil
}

// SortByColumn orders rows ascending by the named column. Used to make
// the chronological train/validation split deterministic.
func (f *Frame) SortByColumn(name string) error {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return fmt.Errorf("column %q not in frame", name)
	}
	sortRows(f.Rows, idx)
	return nil
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case float64:
		return x
	case float32:
		return float64(x)
	default:
		return math.NaN()
	}
}

// less compares two cells of the same column.
func less(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Before(y)
		}
	case string:
		if y, ok := b.(string); ok {
			return x < y
		}
	}
	fa, fb := toFloat(a), toFloat(b)
	if math.IsNaN(fa) {
		return !math.IsNaN(fb)
	}
	if math.IsNaN(fb) {
		return false
	}
	return fa < fb
}

func sortRows(rows [][]any, idx int) {
	sort.SliceStable(rows, func(i, j int) bool {
		return less(rows[i][idx], rows[j][idx])
	})
}
