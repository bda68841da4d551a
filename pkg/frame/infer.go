package frame

import (
	"strconv"
	"strings"
	"time"
)

// timeLayouts are the timestamp formats recognized during inference,
// tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// InferType probes raw string cells and returns the narrowest store type
// holding all of them: INTEGER if every non-empty cell parses as an
// integer, FLOAT if every cell is numeric and at least one has a
// fractional part, TIMESTAMP if every cell parses as a time, otherwise
// VARCHAR. A column of only empty cells is VARCHAR.
func InferType(cells []string) Type {
	var seen, ints, floats, times int
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		seen++
		if _, err := strconv.ParseInt(c, 10, 64); err == nil {
			ints++
			floats++
			continue
		}
		if _, err := strconv.ParseFloat(c, 64); err == nil {
			floats++
			continue
		}
		if _, ok := parseTime(c); ok {
			times++
		}
	}
	switch {
	case seen == 0:
		return Varchar
	case ints == seen:
		return Integer
	case floats == seen:
		return Float
	case times == seen:
		return Timestamp
	default:
		return Varchar
	}
}

// Convert parses a raw cell into the Go value for the given type.
// Empty cells become nil. Unparseable cells also become nil rather than
// failing the whole ingest; the column type was inferred from the same
// data, so this only happens for genuinely mixed columns typed VARCHAR.
func Convert(cell string, t Type) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	switch t {
	case Integer:
		if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return v
		}
	case Float:
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return v
		}
	case Timestamp:
		if v, ok := parseTime(cell); ok {
			return v
		}
	default:
		return cell
	}
	return nil
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FromRecords builds a typed Frame from string records: names are
// sanitized, types inferred per column, cells converted. Records are
// row-major with the first dimension matching names.
func FromRecords(names []string, records [][]string) (*Frame, error) {
	clean, err := SanitizeColumns(names)
	if err != nil {
		return nil, err
	}

	cols := make([]Column, len(clean))
	for j, name := range clean {
		cells := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				cells[i] = rec[j]
			}
		}
		cols[j] = Column{Name: name, Type: InferType(cells)}
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(cols))
		for j := range cols {
			if j < len(rec) {
				row[j] = Convert(rec[j], cols[j].Type)
			}
		}
		rows[i] = row
	}

	return &Frame{Columns: cols, Rows: rows}, nil
}
