package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Columns added to a corrected file.
const (
	StatusColumn = "Estado"
	ErrorsColumn = "Errores"

	StatusOK    = "OK"
	StatusError = "ERROR"
)

// BlankCategory is the category DropBlank applies to.
const BlankCategory = "valores_vacios"

// CategoryRows lists the row numbers referenced by one error category.
// Row numbers follow the report convention: input index + 2.
type CategoryRows struct {
	Category string
	Rows     []int
}

// AnnotateOptions controls which flagged rows are left out of the output.
type AnnotateOptions struct {
	// DropFlagged omits rows referenced by any category except valores_vacios.
	DropFlagged bool
	// DropBlank omits rows referenced by valores_vacios.
	DropBlank bool
}

// Annotated is a table with per-row status, ready to be written as CSV.
type Annotated struct {
	Header []string
	Rows   [][]string

	// Flagged is the number of distinct input rows marked ERROR, including
	// rows that were dropped from Rows.
	Flagged int
}

// Annotate paints categories onto t. Every row gets Estado (OK or ERROR) and
// Errores (the categories that referenced it, in category order, joined by
// ", "). Existing Estado or Errores columns are overwritten in place; otherwise
// both are appended. Row numbers outside the table are ignored.
func Annotate(t Table, categories []CategoryRows, opts AnnotateOptions) Annotated {
	n := len(t.Rows)
	marks := make([][]string, n)
	drop := make([]bool, n)

	for _, c := range categories {
		blank := c.Category == BlankCategory
		for _, row := range c.Rows {
			idx := row - 2
			if idx < 0 || idx >= n {
				continue
			}
			marks[idx] = append(marks[idx], c.Category)
			if (blank && opts.DropBlank) || (!blank && opts.DropFlagged) {
				drop[idx] = true
			}
		}
	}

	header := append([]string(nil), t.Header...)
	statusIdx := indexOf(header, StatusColumn)
	if statusIdx < 0 {
		statusIdx = len(header)
		header = append(header, StatusColumn)
	}
	errorsIdx := indexOf(header, ErrorsColumn)
	if errorsIdx < 0 {
		errorsIdx = len(header)
		header = append(header, ErrorsColumn)
	}

	out := Annotated{Header: header}
	for i := range t.Rows {
		if len(marks[i]) > 0 {
			out.Flagged++
		}
		if drop[i] {
			continue
		}

		rec := make([]string, len(header))
		for j := range t.Header {
			rec[j] = t.Cell(i, j).String()
		}
		rec[statusIdx] = StatusOK
		rec[errorsIdx] = ""
		if len(marks[i]) > 0 {
			rec[statusIdx] = StatusError
			rec[errorsIdx] = strings.Join(marks[i], ", ")
		}
		out.Rows = append(out.Rows, rec)
	}

	return out
}

// WriteCSV writes the header and rows as comma-separated UTF-8.
func (a Annotated) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(a.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(a.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// CSV returns the annotated table as CSV text.
func (a Annotated) CSV() (string, error) {
	var buf bytes.Buffer
	if err := a.WriteCSV(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CorrectedFileName derives the output name for an uploaded file:
// "spots.xlsx" becomes "spots_corregido.csv".
func CorrectedFileName(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "archivo"
	}
	return base + "_corregido.csv"
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
