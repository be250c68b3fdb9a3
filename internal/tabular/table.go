// Package tabular holds the in-memory table consumed by the spot validator,
// the file decoders that produce it (CSV and XLSX) and the corrected-file
// generator that paints validation results back onto the original rows.
//
// Cells keep the primitive they were read as. Decoders never coerce types:
// a CSV field "7.33" stays text until the validator decides what the column
// means.
package tabular

import (
	"math"
	"strconv"
)

// CellKind identifies which primitive a Cell holds.
type CellKind uint8

const (
	CellAbsent CellKind = iota
	CellText
	CellNumber
)

// Cell is a single table value: text, a number, or absent.
// The zero value is an absent cell.
type Cell struct {
	Kind CellKind
	Text string
	Num  float64
}

// TextCell returns a cell holding s.
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// NumberCell returns a cell holding f.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Num: f}
}

// IsAbsent reports whether the cell carries no value. NaN numbers count as
// absent, the same way a spreadsheet reader reports an empty numeric cell.
func (c Cell) IsAbsent() bool {
	switch c.Kind {
	case CellAbsent:
		return true
	case CellNumber:
		return math.IsNaN(c.Num)
	default:
		return false
	}
}

// String returns the text form of the cell. Absent cells render as "",
// numbers in their shortest decimal form (1 rather than 1.0).
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		if math.IsNaN(c.Num) {
			return ""
		}
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// Table is an ordered set of rows under a header. Row order is significant:
// it defines row numbers and first-occurrence tie-breaks downstream.
type Table struct {
	Header []string
	Rows   [][]Cell

	// Sheets is the number of sheets in the source workbook. Only the first
	// one is decoded; CSV sources report 1.
	Sheets int
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Cell returns the value at (row, col), or an absent cell when either index
// is out of range. Short rows are therefore read as padded with absent cells.
func (t Table) Cell(row, col int) Cell {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return Cell{}
	}
	r := t.Rows[row]
	if col >= len(r) {
		return Cell{}
	}
	return r[col]
}
