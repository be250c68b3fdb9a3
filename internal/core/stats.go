package core

import (
	"github.com/JonMunkholm/spots/internal/tabular"
)

// Stats summarizes the spots in a table for the dashboard.
type Stats struct {
	TotalSpots  int      `json:"total_spots" yaml:"total_spots"`
	TotalLotes  int      `json:"total_lotes" yaml:"total_lotes"`
	TotalLineas int      `json:"total_lineas" yaml:"total_lineas"`
	Lotes       []string `json:"lotes" yaml:"lotes"`
	Lineas      []string `json:"lineas" yaml:"lineas"`
}

// Point is a spot ready to be drawn on a map.
type Point struct {
	Latitud  float64  `json:"latitud"`
	Longitud float64  `json:"longitud"`
	Linea    string   `json:"linea"`
	Posicion *float64 `json:"posicion"`
	Lote     string   `json:"lote"`
	Grupo    string   `json:"grupo,omitempty"`
	Fecha    string   `json:"fecha,omitempty"`
}

// SpotStats counts spots with numeric coordinates and lists the distinct
// non-empty lotes and lineas in first-seen order. Missing canonical columns
// are not an error here; the affected values simply read as absent.
func SpotStats(t tabular.Table) Stats {
	cols, _ := NormalizeColumns(t.Header)

	st := Stats{Lotes: []string{}, Lineas: []string{}}
	seenLote := make(map[string]bool)
	seenLinea := make(map[string]bool)

	for _, r := range ResolveRows(t, cols) {
		if !r.Latitud.Valid || !r.Longitud.Valid {
			continue
		}
		st.TotalSpots++

		if r.Lote != "" && !seenLote[r.Lote] {
			seenLote[r.Lote] = true
			st.Lotes = append(st.Lotes, r.Lote)
		}
		if r.Linea != "" && !seenLinea[r.Linea] {
			seenLinea[r.Linea] = true
			st.Lineas = append(st.Lineas, r.Linea)
		}
	}

	st.TotalLotes = len(st.Lotes)
	st.TotalLineas = len(st.Lineas)
	return st
}

// SpotPoints returns every row with numeric coordinates as a map point.
// Optional "grupo" and "fecha" columns are carried along when present.
func SpotPoints(t tabular.Table) []Point {
	cols, _ := NormalizeColumns(t.Header)
	grupo := passThroughIndex(t.Header, cols, "grupo")
	fecha := passThroughIndex(t.Header, cols, "fecha")

	points := []Point{}
	for i, r := range ResolveRows(t, cols) {
		if !r.Latitud.Valid || !r.Longitud.Valid {
			continue
		}
		p := Point{
			Latitud:  r.Latitud.Float64,
			Longitud: r.Longitud.Float64,
			Linea:    r.Linea,
			Posicion: float8Ptr(r.Posicion),
			Lote:     r.Lote,
		}
		if grupo >= 0 {
			p.Grupo = t.Cell(i, grupo).String()
		}
		if fecha >= 0 {
			p.Fecha = t.Cell(i, fecha).String()
		}
		points = append(points, p)
	}
	return points
}

// passThroughIndex finds an unmatched column by name, or -1.
func passThroughIndex(header []string, cols ColumnSet, name string) int {
	for i, h := range header {
		if cols.Names[i] == h && headerKey(h) == name {
			return i
		}
	}
	return -1
}
