// Package ioparse turns uploaded tabular files (csv, xls, xlsx) into
// typed frames. The declared filename extension picks the parser; the
// first row is always the header.
package ioparse

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/frame"
	"github.com/xuri/excelize/v2"
)

// Parse dispatches on the extension of filename and returns a typed
// frame with sanitized column names.
func Parse(filename string, content []byte) (*frame.Frame, error) {
	var names []string
	var records [][]string
	var err error

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		names, records, err = parseCSV(content)
	case ".xlsx":
		names, records, err = parseXLSX(content)
	case ".xls":
		names, records, err = parseXLS(content)
	default:
		return nil, &errs.SchemaError{
			Reason: fmt.Sprintf("unsupported file extension %q", ext),
		}
	}
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, &errs.SchemaError{Reason: "file has no header row"}
	}
	return frame.FromRecords(names, records)
}

func parseCSV(content []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, &errs.SchemaError{Reason: "empty csv file"}
	}
	if err != nil {
		return nil, nil, &errs.SchemaError{Reason: "reading csv header", Err: err}
	}

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &errs.SchemaError{Reason: "reading csv rows", Err: err}
		}
		records = append(records, rec)
	}
	return header, records, nil
}

func parseXLSX(content []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, nil, &errs.SchemaError{Reason: "opening xlsx file", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &errs.SchemaError{Reason: "xlsx file has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, &errs.SchemaError{Reason: "reading xlsx rows", Err: err}
	}
	if len(rows) == 0 {
		return nil, nil, &errs.SchemaError{Reason: "empty xlsx sheet"}
	}
	return rows[0], rows[1:], nil
}

func parseXLS(content []byte) ([]string, [][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return nil, nil, &errs.SchemaError{Reason: "opening xls file", Err: err}
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil, &errs.SchemaError{Reason: "xls file has no sheets"}
	}

	var all [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			all = append(all, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		all = append(all, cells)
	}
	if len(all) == 0 {
		return nil, nil, &errs.SchemaError{Reason: "empty xls sheet"}
	}
	return all[0], all[1:], nil
}
