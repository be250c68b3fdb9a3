// Package templates holds the HTML views of the spots service. Views are
// written as .templ files; the _templ.go files next to them are generated
// with `templ generate` and checked in.
package templates

import (
	"fmt"

	"github.com/JonMunkholm/spots/internal/core"
)

// Finca is an option in the upload form's finca selector.
type Finca struct {
	ID     string
	Nombre string
}

// UploadPageParams configures the upload form.
type UploadPageParams struct {
	Fincas      []Finca
	MaxFileSize int64
}

// ReportPageParams is a finished validation.
type ReportPageParams struct {
	FileName     string
	ValidationID string
	Report       *core.Report
}

var categoryLabels = map[string]string{
	core.CategoryMissingColumns:     "Columnas faltantes",
	core.CategoryDuplicateCoords:    "Coordenadas duplicadas",
	core.CategoryDuplicateLines:     "Línea duplicada en el lote",
	core.CategoryDuplicatePositions: "Posición duplicada en la línea",
	core.CategoryOutOfRange:         "Coordenadas fuera de rango",
	core.CategoryBlankValues:        "Valores vacíos",
	core.CategoryInvalidLotes:       "Lotes inválidos",
}

// CategoryLabel returns the display name of an error category.
func CategoryLabel(category string) string {
	if l, ok := categoryLabels[category]; ok {
		return l
	}
	return category
}

func missingColumns(r *core.Report) []string {
	if r.Errors == nil {
		return nil
	}
	return r.Errors.MissingColumns
}

func formatSize(n int64) string {
	if n <= 0 {
		return "sin límite"
	}
	return fmt.Sprintf("%d MB", n>>20)
}
