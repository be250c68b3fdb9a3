package core

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/spots/internal/tabular"
)

// Field is one of the five canonical spot columns.
type Field int

const (
	FieldLatitud Field = iota
	FieldLongitud
	FieldLinea
	FieldPosicion
	FieldLote

	numFields
)

// Fields lists the canonical fields in report order.
var Fields = [numFields]Field{FieldLatitud, FieldLongitud, FieldLinea, FieldPosicion, FieldLote}

var fieldNames = [numFields]string{"latitud", "longitud", "linea", "posicion", "lote"}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

// Error categories, in the order they appear in a report.
const (
	CategoryMissingColumns     = "columnas_faltantes"
	CategoryDuplicateCoords    = "coords_duplicadas"
	CategoryDuplicateLines     = "linea_duplicada_en_lote"
	CategoryDuplicatePositions = "posicion_duplicada_en_linea"
	CategoryOutOfRange         = "rango_coord"
	CategoryBlankValues        = "valores_vacios"
	CategoryInvalidLotes       = "lote_invalido"
)

// Row is one data row resolved against the canonical columns.
//
// Number is the human-visible row in the source file (index + 2, the header
// being row 1). It is assigned once and never recomputed.
type Row struct {
	Number int

	// Raw cells per canonical field, before coercion.
	Cells [numFields]tabular.Cell

	// Typed values. Invalid Float8 means the cell was absent or not numeric.
	Latitud  pgtype.Float8
	Longitud pgtype.Float8
	Posicion pgtype.Float8
	Linea    string
	Lote     string
}

// Meta describes the validated input.
type Meta struct {
	RowsTotal int `json:"rows_total" yaml:"rows_total"`
	Sheets    int `json:"sheets" yaml:"sheets"`
}

// Report is the result of validating one table.
type Report struct {
	Meta            Meta     `json:"meta" yaml:"meta"`
	ColumnsDetected []string `json:"columns_detected" yaml:"columns_detected"`
	Errors          *Errors  `json:"errors" yaml:"errors"`
	Warnings        []string `json:"warnings" yaml:"warnings"`
	OK              bool     `json:"ok" yaml:"ok"`
}

// Errors groups violation records by category. Empty categories are omitted
// when encoded.
type Errors struct {
	MissingColumns     []string             `json:"columnas_faltantes,omitempty" yaml:"columnas_faltantes,omitempty"`
	DuplicateCoords    []CoordDuplicate     `json:"coords_duplicadas,omitempty" yaml:"coords_duplicadas,omitempty"`
	DuplicateLines     []PlacementDuplicate `json:"linea_duplicada_en_lote,omitempty" yaml:"linea_duplicada_en_lote,omitempty"`
	DuplicatePositions []PlacementDuplicate `json:"posicion_duplicada_en_linea,omitempty" yaml:"posicion_duplicada_en_linea,omitempty"`
	OutOfRange         []RangeViolation     `json:"rango_coord,omitempty" yaml:"rango_coord,omitempty"`
	Blanks             []BlankValue         `json:"valores_vacios,omitempty" yaml:"valores_vacios,omitempty"`
	InvalidLotes       []InvalidLote        `json:"lote_invalido,omitempty" yaml:"lote_invalido,omitempty"`
}

// CoordDuplicate is a row sharing its exact coordinates with an earlier row.
type CoordDuplicate struct {
	Row            int      `json:"row" yaml:"row"`
	DuplicateOfRow int      `json:"duplicate_of_row" yaml:"duplicate_of_row"`
	Lat            *float64 `json:"lat" yaml:"lat"`
	Lon            *float64 `json:"lon" yaml:"lon"`
}

// PlacementDuplicate is a row repeating the lote, linea and posicion of an
// earlier row.
type PlacementDuplicate struct {
	Lote           string   `json:"lote" yaml:"lote"`
	Linea          string   `json:"linea" yaml:"linea"`
	Posicion       *float64 `json:"posicion" yaml:"posicion"`
	Row            int      `json:"row" yaml:"row"`
	DuplicateOfRow int      `json:"duplicate_of_row" yaml:"duplicate_of_row"`
}

// RangeViolation is a coordinate outside its valid range.
type RangeViolation struct {
	Row   int     `json:"row" yaml:"row"`
	Field string  `json:"field" yaml:"field"`
	Value float64 `json:"value" yaml:"value"`
}

// BlankValue is a required cell with no value.
type BlankValue struct {
	Row    int    `json:"row" yaml:"row"`
	Column string `json:"column" yaml:"column"`
}

// InvalidLote is a row whose lote is not in the whitelist.
type InvalidLote struct {
	Row  int    `json:"row" yaml:"row"`
	Lote string `json:"lote" yaml:"lote"`
}

// Empty reports whether no category holds a record.
func (e *Errors) Empty() bool {
	return e == nil || e.Count() == 0
}

// Count returns the total number of records across categories.
func (e *Errors) Count() int {
	if e == nil {
		return 0
	}
	return len(e.MissingColumns) + len(e.DuplicateCoords) + len(e.DuplicateLines) +
		len(e.DuplicatePositions) + len(e.OutOfRange) + len(e.Blanks) + len(e.InvalidLotes)
}

// Categories returns the row numbers referenced by each non-empty row-level
// category, in report order. columnas_faltantes carries no rows and is skipped.
func (e *Errors) Categories() []tabular.CategoryRows {
	if e == nil {
		return nil
	}

	var out []tabular.CategoryRows
	add := func(name string, n int, row func(i int) int) {
		if n == 0 {
			return
		}
		rows := make([]int, n)
		for i := range rows {
			rows[i] = row(i)
		}
		out = append(out, tabular.CategoryRows{Category: name, Rows: rows})
	}

	add(CategoryDuplicateCoords, len(e.DuplicateCoords), func(i int) int { return e.DuplicateCoords[i].Row })
	add(CategoryDuplicateLines, len(e.DuplicateLines), func(i int) int { return e.DuplicateLines[i].Row })
	add(CategoryDuplicatePositions, len(e.DuplicatePositions), func(i int) int { return e.DuplicatePositions[i].Row })
	add(CategoryOutOfRange, len(e.OutOfRange), func(i int) int { return e.OutOfRange[i].Row })
	add(CategoryBlankValues, len(e.Blanks), func(i int) int { return e.Blanks[i].Row })
	add(CategoryInvalidLotes, len(e.InvalidLotes), func(i int) int { return e.InvalidLotes[i].Row })

	return out
}
