package ioparse_test

import (
	"bytes"
	"testing"

	"github.com/horizonml/horizon/internal/ioparse"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	content := []byte("Store ID,Date,Weekly Sales\n1,2024-01-05,24000.5\n2,2024-01-12,18300\n")

	f, err := ioparse.Parse("sales.csv", content)
	require.NoError(t, err)

	assert.Equal(t, []string{"store_id", "date", "weekly_sales"}, f.ColumnNames())
	assert.Equal(t, frame.Integer, f.Columns[0].Type)
	assert.Equal(t, frame.Timestamp, f.Columns[1].Type)
	assert.Equal(t, frame.Float, f.Columns[2].Type)
	assert.Len(t, f.Rows, 2)
}

func TestParseCSVRagged(t *testing.T) {
	// Short rows pad with nil instead of failing.
	content := []byte("a,b\n1,2\n3\n")

	f, err := ioparse.Parse("data.csv", content)
	require.NoError(t, err)
	require.Len(t, f.Rows, 2)
	assert.Nil(t, f.Rows[1][1])
}

func TestParseXLSX(t *testing.T) {
	x := excelize.NewFile()
	require.NoError(t, x.SetSheetRow("Sheet1", "A1", &[]any{"id", "value"}))
	require.NoError(t, x.SetSheetRow("Sheet1", "A2", &[]any{1, 10.5}))
	require.NoError(t, x.SetSheetRow("Sheet1", "A3", &[]any{2, 11.5}))

	var buf bytes.Buffer
	require.NoError(t, x.Write(&buf))

	f, err := ioparse.Parse("data.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "value"}, f.ColumnNames())
	assert.Len(t, f.Rows, 2)
	assert.Equal(t, frame.Integer, f.Columns[0].Type)
}

func TestParseErrors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		_, err := ioparse.Parse("data.parquet", []byte("x"))
		var serr *errs.SchemaError
		assert.ErrorAs(t, err, &serr)
	})

	t.Run("empty csv", func(t *testing.T) {
		_, err := ioparse.Parse("data.csv", nil)
		var serr *errs.SchemaError
		assert.ErrorAs(t, err, &serr)
	})

	t.Run("colliding columns", func(t *testing.T) {
		_, err := ioparse.Parse("data.csv", []byte("a b,A-B\n1,2\n"))
		var serr *errs.SchemaError
		assert.ErrorAs(t, err, &serr)
	})
}
