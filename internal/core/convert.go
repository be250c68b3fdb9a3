package core

// convert.go coerces raw table cells into the typed values the rules work on.
//
// Coercion never fails loudly. A latitude of "n/a" becomes an invalid
// pgtype.Float8 and downstream rules branch on Valid:
//   - Numbers: optional sign, decimals, scientific notation ("7.33", "-7.3e0")
//   - Text: absent cells become "", numbers their shortest decimal form
//
// Thousands separators are not stripped. "7,336" in a coordinate column is a
// decimal comma typo, not seven thousand.

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/spots/internal/tabular"
)

// numericRegex validates that a string is a plain decimal number.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ToPgFloat8 converts a cell to pgtype.Float8.
// Returns invalid for absent cells, non-numeric text and values that overflow
// float64.
func ToPgFloat8(c tabular.Cell) pgtype.Float8 {
	switch c.Kind {
	case tabular.CellNumber:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return pgtype.Float8{}
		}
		return pgtype.Float8{Float64: c.Num, Valid: true}
	case tabular.CellText:
		return ParseFloat8(c.Text)
	default:
		return pgtype.Float8{}
	}
}

// ParseFloat8 converts a string to pgtype.Float8.
//
// Only finite decimals are valid. Infinity spellings ("inf", "-Infinity") and
// magnitudes that overflow float64 ("1e400") coerce to no value instead of
// ±Inf, so such a coordinate is never reported in rango_coord; like any other
// non-numeric text it is neither blank nor range checked.
func ParseFloat8(s string) pgtype.Float8 {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return pgtype.Float8{}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// ToText converts a cell to its text form. The text is not trimmed.
func ToText(c tabular.Cell) string {
	return c.String()
}

// isBlank reports whether a raw cell counts as an empty value: absent, NaN,
// or text that is empty after trimming.
func isBlank(c tabular.Cell) bool {
	if c.IsAbsent() {
		return true
	}
	return c.Kind == tabular.CellText && strings.TrimSpace(c.Text) == ""
}

// float8Ptr returns the value of f, or nil when f is invalid.
func float8Ptr(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// compareFloat8 orders valid values numerically and invalid values last.
func compareFloat8(a, b pgtype.Float8) int {
	switch {
	case a.Valid && b.Valid:
		switch {
		case a.Float64 < b.Float64:
			return -1
		case a.Float64 > b.Float64:
			return 1
		}
		return 0
	case a.Valid:
		return -1
	case b.Valid:
		return 1
	default:
		return 0
	}
}
