// Package core provides the spot validation engine and the service around it.
//
// The engine is independent of any UI or transport layer. It is used by the
// web handlers and the spotcheck CLI without modification.
//
// # Engine
//
// [ValidateSpots] is a pure function from a decoded table and an optional
// lote whitelist to a [Report]:
//
//	table, err := tabular.Decode("finca_norte.xlsx", data)
//	if err != nil {
//	    return err
//	}
//	report := core.ValidateSpots(table, []string{"L1", "L2"})
//	if !report.OK {
//	    // report.Errors lists every violation by category
//	}
//
// Header names are mapped onto five canonical fields (latitud, longitud,
// linea, posicion, lote). A missing field stops validation with a
// columnas_faltantes error. Otherwise every rule runs and records are
// accumulated per category; rows are identified by their human-visible row
// number (data index + 2).
//
// # Service
//
// [Service] wraps the engine with decoding, whitelist resolution through a
// [LoteSource] and a [Limiter] that bounds concurrent validations. It also
// builds corrected files and the dashboard statistics.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Each
// category has a code for support reference:
//
//   - FILE001-FILE007: File errors (size, format, encoding, empty)
//   - VAL001-VAL003: Request payload errors
//   - LOT001-LOT002: Lote whitelist lookup errors
//   - SIO001-SIO003: Sioma API errors
//   - UPL001-UPL003: Admission and timeout errors
package core
