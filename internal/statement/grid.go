// =============================================================================
// Statement Order Replay - Grid Reader
// =============================================================================
//
// This module turns a statement file into a Grid: an ordered list of rows,
// each an ordered list of cell strings. Nothing else in the parser touches
// file formats.
//
// SUPPORTED FORMATS:
//   - .xlsx / .xlsm : read with excelize, formatted cell values
//   - .csv          : read with encoding/csv, ragged rows allowed
//
// =============================================================================

package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Grid is a raw sheet: rows of cell strings. Rows may have different lengths.
type Grid [][]string

// ErrUnsupportedFormat is returned for files the reader cannot open.
var ErrUnsupportedFormat = errors.New("unsupported statement format")

// ReadGrid opens a statement file and returns its cells.
//
// PARAMETERS:
//   - path:  path to an .xlsx, .xlsm or .csv file.
//   - sheet: worksheet name for workbooks; empty selects the first sheet.
func ReadGrid(path, sheet string) (Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement: %w", err)
	}
	defer f.Close()

	return ReadGridFrom(f, filepath.Base(path), sheet)
}

// ReadGridFrom reads a statement from r. The name is only used to pick the
// format by extension, so uploads can pass the client's file name.
func ReadGridFrom(r io.Reader, name, sheet string) (Grid, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(r, sheet)
	case ".csv":
		return readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// readWorkbook reads one worksheet from an OOXML workbook.
func readWorkbook(r io.Reader, sheet string) (Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %q: %w", sheet, err)
	}

	return Grid(rows), nil
}

// readCSV reads a CSV export. Bank exports often carry metadata lines with a
// different column count than the transaction table, so record length
// checking is disabled.
func readCSV(r io.Reader) (Grid, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	// Strip a UTF-8 byte order mark from the first cell.
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}

	return Grid(rows), nil
}

// cell returns the trimmed cell at index i, or "" when the row is shorter.
func (g Grid) cell(row, i int) string {
	if i < 0 || row < 0 || row >= len(g) || i >= len(g[row]) {
		return ""
	}
	return strings.TrimSpace(g[row][i])
}
