package core

// duplicates.go holds the three duplicate rules.
//
// Each rule builds its own map from grouping key to member rows, then visits
// groups in ascending key order (absent numbers last) so the output order is
// stable across runs. Members are appended in row order, which makes the
// first member of every group its canonical row.

import (
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

type coordKey struct {
	lat, lon pgtype.Float8
}

type lineKey struct {
	lote, linea string
}

type placementKey struct {
	lote, linea string
	pos         pgtype.Float8
}

// groupRows partitions rows by key and returns the keys sorted with cmp.
func groupRows[K comparable](rows []Row, key func(*Row) K, cmp func(a, b K) int) ([]K, map[K][]*Row) {
	groups := make(map[K][]*Row)
	var keys []K
	for i := range rows {
		k := key(&rows[i])
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], &rows[i])
	}
	slices.SortStableFunc(keys, cmp)
	return keys, groups
}

// findDuplicateCoords reports rows sharing exact coordinates with an earlier
// row. Absent coordinates form a group of their own.
func findDuplicateCoords(rows []Row) []CoordDuplicate {
	keys, groups := groupRows(rows,
		func(r *Row) coordKey { return coordKey{r.Latitud, r.Longitud} },
		func(a, b coordKey) int {
			if c := compareFloat8(a.lat, b.lat); c != 0 {
				return c
			}
			return compareFloat8(a.lon, b.lon)
		})

	var out []CoordDuplicate
	for _, k := range keys {
		members := groups[k]
		for _, r := range members[1:] {
			out = append(out, CoordDuplicate{
				Row:            r.Number,
				DuplicateOfRow: members[0].Number,
				Lat:            float8Ptr(k.lat),
				Lon:            float8Ptr(k.lon),
			})
		}
	}
	return out
}

// findDuplicateLines reports repeated positions inside a (lote, linea) group.
// A line legitimately holds many rows, one per position; it is only flagged
// when it has fewer distinct positions than rows. Rows without a numeric
// position are never reported here.
func findDuplicateLines(rows []Row) []PlacementDuplicate {
	keys, groups := groupRows(rows,
		func(r *Row) lineKey { return lineKey{r.Lote, r.Linea} },
		compareLineKey)

	var out []PlacementDuplicate
	for _, k := range keys {
		members := groups[k]

		byPos := make(map[float64][]*Row)
		var positions []float64
		for _, r := range members {
			if !r.Posicion.Valid {
				continue
			}
			p := r.Posicion.Float64
			if _, ok := byPos[p]; !ok {
				positions = append(positions, p)
			}
			byPos[p] = append(byPos[p], r)
		}
		if len(positions) >= len(members) {
			continue
		}

		slices.Sort(positions)
		for _, p := range positions {
			dups := byPos[p]
			for _, r := range dups[1:] {
				out = append(out, PlacementDuplicate{
					Lote:           k.lote,
					Linea:          k.linea,
					Posicion:       float8Ptr(r.Posicion),
					Row:            r.Number,
					DuplicateOfRow: dups[0].Number,
				})
			}
		}
	}
	return out
}

// findDuplicatePositions reports rows repeating the full (lote, linea,
// posicion) triple of an earlier row, absent positions included.
func findDuplicatePositions(rows []Row) []PlacementDuplicate {
	keys, groups := groupRows(rows,
		func(r *Row) placementKey { return placementKey{r.Lote, r.Linea, r.Posicion} },
		func(a, b placementKey) int {
			if c := compareLineKey(lineKey{a.lote, a.linea}, lineKey{b.lote, b.linea}); c != 0 {
				return c
			}
			return compareFloat8(a.pos, b.pos)
		})

	var out []PlacementDuplicate
	for _, k := range keys {
		members := groups[k]
		for _, r := range members[1:] {
			out = append(out, PlacementDuplicate{
				Lote:           k.lote,
				Linea:          k.linea,
				Posicion:       float8Ptr(k.pos),
				Row:            r.Number,
				DuplicateOfRow: members[0].Number,
			})
		}
	}
	return out
}

func compareLineKey(a, b lineKey) int {
	if c := strings.Compare(a.lote, b.lote); c != 0 {
		return c
	}
	return strings.Compare(a.linea, b.linea)
}
