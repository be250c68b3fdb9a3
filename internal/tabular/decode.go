package tabular

// decode.go turns uploaded bytes into a Table.
//
// The format is chosen by file extension only; content sniffing is limited to
// the CSV delimiter and text encoding. Spreadsheets go through excelize and
// only the first sheet is read.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for file extensions no decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("empty file")

// Decode reads data according to the extension of fileName.
// Supported: .csv, .xlsx, .xlsm. Legacy .xls workbooks are rejected.
func Decode(fileName string, data []byte) (Table, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))

	switch ext {
	case "csv":
		return DecodeCSV(data)
	case "xlsx", "xlsm":
		return DecodeXLSX(data)
	default:
		return Table{}, fmt.Errorf("%w: %q (use CSV or XLSX)", ErrUnsupportedFormat, ext)
	}
}

// DecodeCSV parses CSV bytes. The first record is the header. Empty fields
// become absent cells and short records are padded; records wider than the
// header are rejected.
func DecodeCSV(data []byte) (Table, error) {
	text, err := decodeText(data)
	if err != nil {
		return Table{}, fmt.Errorf("encoding error: %w", err)
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return Table{}, ErrEmptyFile
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = sniffDelimiter(firstLine(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return Table{}, ErrEmptyFile
	}
	if err != nil {
		return Table{}, fmt.Errorf("invalid csv: %w", err)
	}

	t := Table{Header: header, Sheets: 1}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("invalid csv: %w", err)
		}

		if len(record) > len(header) {
			line, _ := r.FieldPos(0)
			return Table{}, fmt.Errorf("invalid csv: line %d has %d fields, header has %d",
				line, len(record), len(header))
		}

		row := make([]Cell, len(header))
		for i, v := range record {
			if v != "" {
				row[i] = TextCell(v)
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// DecodeXLSX parses an OOXML workbook and returns its first sheet. Leading and
// fully empty rows are skipped. Data cells to the right of the last named
// header get a placeholder column name so their values are not lost.
//
// Cells are read as stored, not as displayed: a coordinate formatted "0.00"
// still yields all of its decimals.
func DecodeXLSX(data []byte) (Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Table{}, fmt.Errorf("invalid spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("invalid spreadsheet: sheet %q: %w", sheets[0], err)
	}

	var nonEmpty [][]string
	for _, row := range rows {
		if !isEmptyRow(row) {
			nonEmpty = append(nonEmpty, row)
		}
	}
	if len(nonEmpty) == 0 {
		return Table{}, ErrEmptyFile
	}

	header := append([]string(nil), nonEmpty[0]...)
	for _, row := range nonEmpty[1:] {
		for len(header) < len(row) {
			header = append(header, fmt.Sprintf("Unnamed: %d", len(header)))
		}
	}

	t := Table{Header: header, Sheets: len(sheets)}
	for _, row := range nonEmpty[1:] {
		cells := make([]Cell, len(header))
		for i, v := range row {
			if v != "" {
				cells[i] = TextCell(v)
			}
		}
		t.Rows = append(t.Rows, cells)
	}

	return t, nil
}

// isEmptyRow reports whether every value in row is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
