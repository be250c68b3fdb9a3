package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchField(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   Field
		ok     bool
	}{
		{"short lat", "Lat", FieldLatitud, true},
		{"latitud substring", " LATITUD_GPS ", FieldLatitud, true},
		{"english latitude", "latitude", FieldLatitud, true},
		{"lng", "lng", FieldLongitud, true},
		{"long", "Long", FieldLongitud, true},
		{"longitud substring", "longitud_decimal", FieldLongitud, true},
		{"accented linea", "Línea", FieldLinea, true},
		{"decomposed accent", "Li\u0301nea", FieldLinea, true},
		{"line", "LINE", FieldLinea, true},
		{"linea wins over posicion", "posicion_linea", FieldLinea, true},
		{"accented posicion", "Posición", FieldPosicion, true},
		{"palma", "palma", FieldPosicion, true},
		{"palma_num", "Palma_Num", FieldPosicion, true},
		{"lote", "Lote", FieldLote, true},
		{"lot", "lot", FieldLote, true},
		{"lotes substring", "lotes", FieldLote, true},
		{"unrelated", "Notas", 0, false},
		{"lat is not a substring rule", "plataforma", 0, false},
		{"empty", "  ", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchField(tt.header)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNormalizeColumns(t *testing.T) {
	cs, warnings := NormalizeColumns([]string{"Lote", "fecha", "Latitud", "Longitud", "Linea", "Posicion"})

	assert.Empty(t, warnings)
	assert.Empty(t, cs.Missing())
	assert.Equal(t, []string{"lote", "fecha", "latitud", "longitud", "linea", "posicion"}, cs.Names)

	col, ok := cs.Lookup(FieldLatitud)
	assert.True(t, ok)
	assert.Equal(t, Column{Name: "Latitud", Index: 2}, col)
}

func TestNormalizeColumns_Collision(t *testing.T) {
	cs, warnings := NormalizeColumns([]string{"Lote", "lot", "otro"})

	col, ok := cs.Lookup(FieldLote)
	assert.True(t, ok)
	assert.Equal(t, Column{Name: "lot", Index: 1}, col)
	assert.Equal(t, []string{"Lote", "lote", "otro"}, cs.Names)
	assert.Len(t, warnings, 1)
	assert.Equal(t, []string{"latitud", "longitud", "linea", "posicion"}, cs.Missing())
}

func TestField_String(t *testing.T) {
	for i, f := range Fields {
		assert.Equal(t, canonicalHeader[i], f.String())
	}
	assert.Equal(t, "unknown", Field(99).String())
}
