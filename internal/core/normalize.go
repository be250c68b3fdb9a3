package core

// normalize.go maps heterogeneous input headers onto the canonical fields.
//
// Field teams export from different tools, so "Lat", "LATITUD_GPS" and
// "latitude" must all land on latitud. Matching is case-insensitive, ignores
// surrounding whitespace and compares in Unicode NFC so "Línea" typed with a
// combining accent still matches.

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Column locates a canonical field in the input table.
type Column struct {
	Name  string // original header
	Index int    // position in the table
}

// ColumnSet is the resolved header: which input column backs each canonical
// field, plus the detected column names in table order.
type ColumnSet struct {
	cols  [numFields]Column
	found [numFields]bool

	// Names lists every input column in table order. Matched columns carry
	// their canonical name; pass-through columns keep the original header.
	Names []string
}

// Lookup returns the column backing f.
func (c ColumnSet) Lookup(f Field) (Column, bool) {
	return c.cols[f], c.found[f]
}

// Missing returns the canonical fields with no backing column, in canonical
// order.
func (c ColumnSet) Missing() []string {
	var missing []string
	for _, f := range Fields {
		if !c.found[f] {
			missing = append(missing, f.String())
		}
	}
	return missing
}

// aliases are exact-match alternatives per field, checked after the substring
// rule. Order of fieldRules is the match precedence.
var fieldRules = []struct {
	field   Field
	contain string
	aliases []string
}{
	{FieldLatitud, "latitud", []string{"lat", "latitude"}},
	{FieldLongitud, "longitud", []string{"lon", "lng", "long", "longitude"}},
	{FieldLinea, "linea", []string{"línea", "line", "linea_palma"}},
	{FieldPosicion, "posicion", []string{"posición", "position", "posicion_palma", "palma", "palma_num"}},
	{FieldLote, "lote", []string{"lot"}},
}

// headerKey is the comparison form of a header name.
func headerKey(name string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(name)))
}

// MatchField returns the canonical field a header name resolves to.
func MatchField(name string) (Field, bool) {
	key := headerKey(name)
	if key == "" {
		return 0, false
	}

	for _, rule := range fieldRules {
		if strings.Contains(key, rule.contain) {
			return rule.field, true
		}
		for _, a := range rule.aliases {
			if key == a {
				return rule.field, true
			}
		}
	}
	return 0, false
}

// NormalizeColumns resolves header against the canonical fields.
//
// When two columns resolve to the same field the later one wins. The earlier
// column is demoted to pass-through and a warning is returned so the user can
// see which column was ignored.
func NormalizeColumns(header []string) (ColumnSet, []string) {
	cs := ColumnSet{Names: make([]string, len(header))}
	var warnings []string

	for i, h := range header {
		cs.Names[i] = h

		f, ok := MatchField(h)
		if !ok {
			continue
		}

		if prev, dup := cs.Lookup(f); dup {
			cs.Names[prev.Index] = prev.Name
			warnings = append(warnings, fmt.Sprintf(
				"Las columnas %q y %q corresponden a %q; se usa %q y se ignora %q",
				prev.Name, h, f.String(), h, prev.Name))
		}

		cs.cols[f] = Column{Name: h, Index: i}
		cs.found[f] = true
		cs.Names[i] = f.String()
	}

	return cs, warnings
}
