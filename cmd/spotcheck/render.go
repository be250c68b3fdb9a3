package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JonMunkholm/spots/internal/core"
)

// renderReportTable prints a summary and one line per problem.
func renderReportTable(w io.Writer, r *core.Report) {
	status := "OK"
	if !r.OK {
		status = fmt.Sprintf("ERROR (%d)", r.Errors.Count())
	}

	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetStyle(table.StyleLight)
	summary.AppendRows([]table.Row{
		{"estado", status},
		{"filas", r.Meta.RowsTotal},
		{"columnas", strings.Join(r.ColumnsDetected, ", ")},
	})
	summary.Render()

	for _, warn := range r.Warnings {
		_, _ = fmt.Fprintf(w, "aviso: %s\n", warn)
	}

	rows := issueRows(r.Errors)
	if len(rows) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"categoria", "fila", "detalle"})
	t.AppendRows(rows)
	t.Render()
}

func issueRows(e *core.Errors) []table.Row {
	if e == nil {
		return nil
	}

	var rows []table.Row
	for _, c := range e.MissingColumns {
		rows = append(rows, table.Row{core.CategoryMissingColumns, "", c})
	}
	for _, d := range e.DuplicateCoords {
		rows = append(rows, table.Row{core.CategoryDuplicateCoords, d.Row,
			fmt.Sprintf("(%s, %s) igual a fila %d", num(d.Lat), num(d.Lon), d.DuplicateOfRow)})
	}
	for _, d := range e.DuplicateLines {
		rows = append(rows, table.Row{core.CategoryDuplicateLines, d.Row, placement(d)})
	}
	for _, d := range e.DuplicatePositions {
		rows = append(rows, table.Row{core.CategoryDuplicatePositions, d.Row, placement(d)})
	}
	for _, v := range e.OutOfRange {
		rows = append(rows, table.Row{core.CategoryOutOfRange, v.Row,
			fmt.Sprintf("%s = %s", v.Field, strconv.FormatFloat(v.Value, 'f', -1, 64))})
	}
	for _, b := range e.Blanks {
		rows = append(rows, table.Row{core.CategoryBlankValues, b.Row, b.Column})
	}
	for _, l := range e.InvalidLotes {
		rows = append(rows, table.Row{core.CategoryInvalidLotes, l.Row, l.Lote})
	}
	return rows
}

func placement(d core.PlacementDuplicate) string {
	return fmt.Sprintf("lote %s, linea %s, posicion %s igual a fila %d", d.Lote, d.Linea, num(d.Posicion), d.DuplicateOfRow)
}

func num(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
