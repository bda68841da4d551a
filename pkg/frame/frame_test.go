package frame_test

import (
	"math"
	"testing"
	"time"

	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases",
			input:    "Revenue",
			expected: "revenue",
		},
		{
			name:     "replaces spaces",
			input:    "store id",
			expected: "store_id",
		},
		{
			name:     "collapses runs of punctuation",
			input:    "unit--price ($)",
			expected: "unit_price",
		},
		{
			name:     "strips leading and trailing separators",
			input:    "  %sales%  ",
			expected: "sales",
		},
		{
			name:     "keeps digits",
			input:    "Week 52",
			expected: "week_52",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, frame.SanitizeIdentifier(tt.input))
		})
	}
}

func TestSanitizeColumns(t *testing.T) {
	t.Run("sanitizes all names", func(t *testing.T) {
		res, err := frame.SanitizeColumns([]string{"Store ID", "Date", "Weekly Sales"})
		require.NoError(t, err)
		assert.Equal(t, []string{"store_id", "date", "weekly_sales"}, res)
	})

	t.Run("fails on collision after sanitizing", func(t *testing.T) {
		_, err := frame.SanitizeColumns([]string{"store id", "Store-ID"})
		require.Error(t, err)
		var serr *errs.SchemaError
		assert.ErrorAs(t, err, &serr)
	})

	t.Run("fails when a name sanitizes to nothing", func(t *testing.T) {
		_, err := frame.SanitizeColumns([]string{"$$$"})
		require.Error(t, err)
		var serr *errs.SchemaError
		assert.ErrorAs(t, err, &serr)
	})
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name     string
		cells    []string
		expected frame.Type
	}{
		{
			name:     "all integers",
			cells:    []string{"1", "42", "-7"},
			expected: frame.Integer,
		},
		{
			name:     "integers with empties stay integer",
			cells:    []string{"1", "", "3"},
			expected: frame.Integer,
		},
		{
			name:     "mixed ints and floats widen to float",
			cells:    []string{"1", "2.5"},
			expected: frame.Float,
		},
		{
			name:     "dates",
			cells:    []string{"2024-01-05", "2024-01-12"},
			expected: frame.Timestamp,
		},
		{
			name:     "us style dates",
			cells:    []string{"01/05/2024", "12/31/2024"},
			expected: frame.Timestamp,
		},
		{
			name:     "mixed types fall back to varchar",
			cells:    []string{"1", "abc"},
			expected: frame.Varchar,
		},
		{
			name:     "all empty is varchar",
			cells:    []string{"", "  ", ""},
			expected: frame.Varchar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, frame.InferType(tt.cells))
		})
	}
}

func TestConvert(t *testing.T) {
	t.Run("integer", func(t *testing.T) {
		assert.Equal(t, int64(42), frame.Convert("42", frame.Integer))
	})

	t.Run("float", func(t *testing.T) {
		assert.Equal(t, 2.5, frame.Convert("2.5", frame.Float))
	})

	t.Run("timestamp", func(t *testing.T) {
		v := frame.Convert("2024-01-05", frame.Timestamp)
		ts, ok := v.(time.Time)
		require.True(t, ok)
		assert.Equal(t, 2024, ts.Year())
	})

	t.Run("empty cell is nil", func(t *testing.T) {
		assert.Nil(t, frame.Convert("", frame.Integer))
		assert.Nil(t, frame.Convert("  ", frame.Varchar))
	})

	t.Run("unparseable cell is nil", func(t *testing.T) {
		assert.Nil(t, frame.Convert("abc", frame.Float))
	})
}

func TestFromRecords(t *testing.T) {
	names := []string{"Store ID", "Date", "Weekly Sales", "Holiday"}
	records := [][]string{
		{"1", "2024-01-05", "24000.50", "no"},
		{"2", "2024-01-12", "18300", "yes"},
		{"3", "", "", "no"},
	}

	f, err := frame.FromRecords(names, records)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"store_id", "date", "weekly_sales", "holiday"},
		f.ColumnNames(),
	)
	assert.Equal(t, frame.Integer, f.Columns[0].Type)
	assert.Equal(t, frame.Timestamp, f.Columns[1].Type)
	assert.Equal(t, frame.Float, f.Columns[2].Type)
	assert.Equal(t, frame.Varchar, f.Columns[3].Type)

	require.Len(t, f.Rows, 3)
	assert.Equal(t, int64(1), f.Rows[0][0])
	assert.Equal(t, 24000.50, f.Rows[0][2])
	assert.Nil(t, f.Rows[2][1])
	assert.Nil(t, f.Rows[2][2])
}

func TestNumericColumns(t *testing.T) {
	f := &frame.Frame{
		Columns: []frame.Column{
			{Name: "id", Type: frame.Integer},
			{Name: "date", Type: frame.Timestamp},
			{Name: "sales", Type: frame.Float},
			{Name: "note", Type: frame.Varchar},
		},
	}
	assert.Equal(t, []string{"id", "sales"}, f.NumericColumns())
}

func TestFloatColumn(t *testing.T) {
	f := &frame.Frame{
		Columns: []frame.Column{{Name: "sales", Type: frame.Float}},
		Rows: [][]any{
			{12.5},
			{nil},
			{int64(7)},
		},
	}

	vals, err := f.FloatColumn("sales")
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.Equal(t, 12.5, vals[0])
	assert.True(t, math.IsNaN(vals[1]))
	assert.Equal(t, 7.0, vals[2])

	_, err = f.FloatColumn("missing")
	assert.Error(t, err)
}

func TestMatrix(t *testing.T) {
	f := &frame.Frame{
		Columns: []frame.Column{
			{Name: "a", Type: frame.Integer},
			{Name: "b", Type: frame.Float},
		},
		Rows: [][]any{
			{int64(1), 10.0},
			{int64(2), 20.0},
		},
	}

	m, err := f.Matrix([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{10, 1}, {20, 2}}, m)
}

func TestSortByColumn(t *testing.T) {
	t.Run("sorts by timestamp ascending", func(t *testing.T) {
		d := func(s string) time.Time {
			ts, err := time.Parse("2006-01-02", s)
			require.NoError(t, err)
			return ts
		}
		f := &frame.Frame{
			Columns: []frame.Column{
				{Name: "date", Type: frame.Timestamp},
				{Name: "v", Type: frame.Integer},
			},
			Rows: [][]any{
				{d("2024-03-01"), int64(3)},
				{d("2024-01-01"), int64(1)},
				{d("2024-02-01"), int64(2)},
			},
		}

		require.NoError(t, f.SortByColumn("date"))
		assert.Equal(t, int64(1), f.Rows[0][1])
		assert.Equal(t, int64(2), f.Rows[1][1])
		assert.Equal(t, int64(3), f.Rows[2][1])
	})

	t.Run("nil cells sort first", func(t *testing.T) {
		f := &frame.Frame{
			Columns: []frame.Column{{Name: "v", Type: frame.Float}},
			Rows: [][]any{
				{5.0},
				{nil},
				{1.0},
			},
		}
		require.NoError(t, f.SortByColumn("v"))
		assert.Nil(t, f.Rows[0][0])
		assert.Equal(t, 1.0, f.Rows[1][0])
	})

	t.Run("unknown column errors", func(t *testing.T) {
		f := &frame.Frame{}
		assert.Error(t, f.SortByColumn("nope"))
	})
}
