package core

import (
	"math"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/spots/internal/tabular"
)

// ----------------------------------------------------------------------------
// ParseFloat8 Tests
// ----------------------------------------------------------------------------

func TestParseFloat8(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantValue float64
	}{
		// Valid
		{name: "integer", input: "123", wantValid: true, wantValue: 123},
		{name: "negative decimal", input: "-76.7232", wantValid: true, wantValue: -76.7232},
		{name: "leading decimal point", input: ".5", wantValid: true, wantValue: 0.5},
		{name: "trailing decimal point", input: "99.", wantValid: true, wantValue: 99},
		{name: "explicit positive sign", input: "+7.3", wantValid: true, wantValue: 7.3},
		{name: "scientific notation", input: "7.3365e0", wantValid: true, wantValue: 7.3365},
		{name: "uppercase exponent", input: "1E2", wantValid: true, wantValue: 100},
		{name: "surrounded by whitespace", input: "  10  ", wantValid: true, wantValue: 10},

		// Invalid
		{name: "empty string", input: ""},
		{name: "only whitespace", input: "   "},
		{name: "alphabetic", input: "abc"},
		{name: "decimal comma", input: "7,33"},
		{name: "thousands separator", input: "1,000"},
		{name: "multiple decimal points", input: "1.2.3"},
		{name: "nan literal", input: "NaN"},
		{name: "infinity literal", input: "Inf"},
		{name: "lowercase infinity", input: "inf"},
		{name: "signed infinity word", input: "-Infinity"},
		{name: "overflow", input: "1e999"},
		{name: "overflow past max exponent", input: "1e400"},
		{name: "hex", input: "0x10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFloat8(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ParseFloat8(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if got.Valid && got.Float64 != tt.wantValue {
				t.Errorf("ParseFloat8(%q) = %v, want %v", tt.input, got.Float64, tt.wantValue)
			}
		})
	}
}

func TestToPgFloat8(t *testing.T) {
	tests := []struct {
		name string
		cell tabular.Cell
		want pgtype.Float8
	}{
		{"absent", tabular.Cell{}, pgtype.Float8{}},
		{"number", tabular.NumberCell(95), pgtype.Float8{Float64: 95, Valid: true}},
		{"nan number", tabular.NumberCell(math.NaN()), pgtype.Float8{}},
		{"infinite number", tabular.NumberCell(math.Inf(1)), pgtype.Float8{}},
		{"numeric text", tabular.TextCell("-90"), pgtype.Float8{Float64: -90, Valid: true}},
		{"garbage text", tabular.TextCell("norte"), pgtype.Float8{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToPgFloat8(tt.cell); got != tt.want {
				t.Errorf("ToPgFloat8() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestToText(t *testing.T) {
	tests := []struct {
		name string
		cell tabular.Cell
		want string
	}{
		{"absent", tabular.Cell{}, ""},
		{"text kept verbatim", tabular.TextCell(" L1 "), " L1 "},
		{"integral number", tabular.NumberCell(3), "3"},
		{"fractional number", tabular.NumberCell(2.5), "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToText(tt.cell); got != tt.want {
				t.Errorf("ToText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	tests := []struct {
		name string
		cell tabular.Cell
		want bool
	}{
		{"absent", tabular.Cell{}, true},
		{"nan", tabular.NumberCell(math.NaN()), true},
		{"empty text", tabular.TextCell(""), true},
		{"whitespace text", tabular.TextCell(" \t "), true},
		{"zero", tabular.NumberCell(0), false},
		{"garbage text", tabular.TextCell("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBlank(tt.cell); got != tt.want {
				t.Errorf("isBlank() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompareFloat8(t *testing.T) {
	one := pgtype.Float8{Float64: 1, Valid: true}
	two := pgtype.Float8{Float64: 2, Valid: true}
	absent := pgtype.Float8{}

	tests := []struct {
		name string
		a, b pgtype.Float8
		want int
	}{
		{"less", one, two, -1},
		{"greater", two, one, 1},
		{"equal", one, one, 0},
		{"absent sorts last", absent, one, 1},
		{"value before absent", one, absent, -1},
		{"both absent", absent, absent, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compareFloat8(tt.a, tt.b); got != tt.want {
				t.Errorf("compareFloat8() = %d, want %d", got, tt.want)
			}
		})
	}
}
