package core

// validation.go runs the spot rule pipeline over a decoded table.
//
// Stages run in a fixed order and each one reads the rows produced by the
// previous ones:
//  1. Header normalization and the required-column check (short-circuits)
//  2. Blank detection on raw cells, before any coercion
//  3. Coercion to typed values
//  4. Coordinate range check
//  5. Duplicate detection over coordinates, lines and positions
//  6. Lote whitelist check
//
// A stage never removes rows, so one physical problem can show up in several
// categories (a duplicated blank coordinate is both blank and duplicated).

import (
	"fmt"

	"github.com/JonMunkholm/spots/internal/tabular"
)

// Coordinate bounds, inclusive.
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// ValidateSpots validates t and returns the report. validLotes enables the
// whitelist check when non-empty.
//
// ValidateSpots is a pure function of its inputs: the same table always
// yields an identical report.
func ValidateSpots(t tabular.Table, validLotes []string) *Report {
	cols, warnings := NormalizeColumns(t.Header)
	if t.Sheets > 1 {
		warnings = append(warnings, fmt.Sprintf(
			"El archivo tiene %d hojas; solo se validó la primera", t.Sheets))
	}
	if warnings == nil {
		warnings = []string{}
	}

	report := &Report{
		Meta:            Meta{RowsTotal: t.Len(), Sheets: 1},
		ColumnsDetected: cols.Names,
		Warnings:        warnings,
	}

	if missing := cols.Missing(); len(missing) > 0 {
		report.Errors = &Errors{MissingColumns: missing}
		return report
	}

	rows := resolveRows(t, cols)

	var errs Errors
	errs.Blanks = findBlanks(rows)
	coerceRows(rows)
	errs.OutOfRange = checkRanges(rows)
	errs.DuplicateCoords = findDuplicateCoords(rows)
	errs.DuplicateLines = findDuplicateLines(rows)
	errs.DuplicatePositions = findDuplicatePositions(rows)
	errs.InvalidLotes = checkLotes(rows, validLotes)

	if !errs.Empty() {
		report.Errors = &errs
	}
	report.OK = report.Errors == nil
	return report
}

// ResolveRows builds typed rows for t. Callers outside the pipeline (stats,
// map points) use it to read spots without validating them.
func ResolveRows(t tabular.Table, cols ColumnSet) []Row {
	rows := resolveRows(t, cols)
	coerceRows(rows)
	return rows
}

// resolveRows picks the raw canonical cells of every row and numbers it.
func resolveRows(t tabular.Table, cols ColumnSet) []Row {
	rows := make([]Row, t.Len())
	for i := range rows {
		rows[i].Number = i + 2
		for _, f := range Fields {
			if col, ok := cols.Lookup(f); ok {
				rows[i].Cells[f] = t.Cell(i, col.Index)
			}
		}
	}
	return rows
}

// findBlanks reports empty required cells, field by field in canonical order.
func findBlanks(rows []Row) []BlankValue {
	var out []BlankValue
	for _, f := range Fields {
		for i := range rows {
			if isBlank(rows[i].Cells[f]) {
				out = append(out, BlankValue{Row: rows[i].Number, Column: f.String()})
			}
		}
	}
	return out
}

func coerceRows(rows []Row) {
	for i := range rows {
		r := &rows[i]
		r.Latitud = ToPgFloat8(r.Cells[FieldLatitud])
		r.Longitud = ToPgFloat8(r.Cells[FieldLongitud])
		r.Posicion = ToPgFloat8(r.Cells[FieldPosicion])
		r.Linea = ToText(r.Cells[FieldLinea])
		r.Lote = ToText(r.Cells[FieldLote])
	}
}

// checkRanges reports latitudes then longitudes strictly outside their
// bounds. Non-numeric values are skipped.
func checkRanges(rows []Row) []RangeViolation {
	var out []RangeViolation
	for _, r := range rows {
		if v := r.Latitud; v.Valid && (v.Float64 < MinLatitude || v.Float64 > MaxLatitude) {
			out = append(out, RangeViolation{Row: r.Number, Field: FieldLatitud.String(), Value: v.Float64})
		}
	}
	for _, r := range rows {
		if v := r.Longitud; v.Valid && (v.Float64 < MinLongitude || v.Float64 > MaxLongitude) {
			out = append(out, RangeViolation{Row: r.Number, Field: FieldLongitud.String(), Value: v.Float64})
		}
	}
	return out
}

// checkLotes reports rows whose non-empty lote is not whitelisted.
func checkLotes(rows []Row, validLotes []string) []InvalidLote {
	if len(validLotes) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(validLotes))
	for _, l := range validLotes {
		allowed[l] = struct{}{}
	}

	var out []InvalidLote
	for _, r := range rows {
		if r.Lote == "" {
			continue
		}
		if _, ok := allowed[r.Lote]; !ok {
			out = append(out, InvalidLote{Row: r.Number, Lote: r.Lote})
		}
	}
	return out
}
