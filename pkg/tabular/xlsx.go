package tabular

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseWorkbook reads a sheet of an XLSX workbook with the same record semantics as Parse.
// An empty sheet name selects the first sheet.
func ParseWorkbook(src io.Reader, sheet string) (Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return Table{}, fmt.Errorf("%w: open workbook: %w", ErrFormat, err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Table{}, ErrEmptyInput
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("%w: read sheet %q: %w", ErrFormat, sheet, err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) (Table, error) {
	start := -1
	for i, cells := range rows {
		if !blankRow(cells) {
			start = i
			break
		}
	}
	if start < 0 {
		return Table{}, ErrEmptyInput
	}

	header := make([]string, len(rows[start]))
	for i, h := range rows[start] {
		header[i] = strings.TrimSpace(h)
	}

	t := Table{Header: header}
	for i, cells := range rows[start+1:] {
		if blankRow(cells) {
			continue
		}
		rec, err := newRecord(header, cells, i+1)
		if err != nil {
			return Table{}, err
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// WriteWorkbook writes a single-sheet workbook with a header row followed by rows.
func WriteWorkbook(w io.Writer, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return err
		}
	}

	all := append([][]string{header}, rows...)
	for i, cells := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}
