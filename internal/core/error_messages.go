package core

// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with codes for
// support reference. Messages are in Spanish for the field teams; logs keep the
// original English error.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large              Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV                 Patterns: "invalid csv"
//	FILE003 - Encoding error              Patterns: "encoding error"
//	FILE004 - No file                     Patterns: "no file provided"
//	FILE005 - Empty file                  Patterns: "empty file"
//	FILE006 - Unsupported format          Patterns: "unsupported file format"
//	FILE007 - Unreadable spreadsheet      Patterns: "invalid spreadsheet"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Unreadable error report      Patterns: "invalid error report"
//	VAL002 - Invalid spot in submission   Patterns: "invalid spot"
//	VAL003 - Invalid request body         Patterns: "invalid request body"
//
// # Lote Errors (LOT001-LOT099)
//
//	LOT001 - Lote lookup failed           Patterns: "lote lookup"
//	LOT002 - No lote source configured    Patterns: "no lote source"
//
// # Sioma Errors (SIO001-SIO099)
//
//	SIO001 - Sioma not configured         Patterns: "sioma not configured"
//	SIO002 - Sioma rejected the request   Patterns: "sioma api error"
//	SIO003 - Sioma unreachable            Patterns: "sioma request"
//
// # Processing Errors (UPL001-UPL099)
//
//	UPL001 - System busy                  Patterns: "too many concurrent validations"
//	UPL002 - Request cancelled            Patterns: "context canceled"
//	UPL003 - Request timeout              Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests           Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Support staff should check the logs for the
// technical error, which is always logged with the request id.
//
// # Pattern Matching
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins. Sioma patterns come first so a Sioma timeout reports as SIO003
// rather than a generic timeout.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Sioma
	{
		pattern: "sioma not configured",
		msg: UserMessage{
			Message: "La integración con Sioma no está configurada",
			Action:  "Configure SIOMA_API_TOKEN en el servidor",
			Code:    "SIO001",
		},
	},
	{
		pattern: "sioma api error",
		msg: UserMessage{
			Message: "Sioma rechazó la solicitud",
			Action:  "Verifique el token y los datos enviados",
			Code:    "SIO002",
		},
	},
	{
		pattern: "sioma request",
		msg: UserMessage{
			Message: "No fue posible comunicarse con Sioma",
			Action:  "Intente de nuevo en unos minutos",
			Code:    "SIO003",
		},
	},

	// Lotes
	{
		pattern: "lote lookup",
		msg: UserMessage{
			Message: "No fue posible obtener los lotes de la finca",
			Action:  "Intente de nuevo o envíe la lista de lotes válidos",
			Code:    "LOT001",
		},
	},
	{
		pattern: "no lote source",
		msg: UserMessage{
			Message: "No hay una fuente de lotes configurada",
			Action:  "Envíe la lista de lotes válidos con la solicitud",
			Code:    "LOT002",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "El archivo supera el tamaño máximo permitido",
			Action:  "Divida el archivo en partes más pequeñas",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "El archivo supera el tamaño máximo permitido",
			Action:  "Divida el archivo en partes más pequeñas",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "El archivo no es un CSV válido",
			Action:  "Verifique que todas las filas tengan las mismas columnas que el encabezado",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "El archivo contiene caracteres inválidos",
			Action:  "Guarde el archivo con codificación UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No se seleccionó ningún archivo",
			Action:  "Seleccione un archivo CSV o XLSX",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "El archivo está vacío",
			Action:  "Suba un archivo con encabezado y filas de datos",
			Code:    "FILE005",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "Formato de archivo no soportado",
			Action:  "Use un archivo CSV o XLSX",
			Code:    "FILE006",
		},
	},
	{
		pattern: "invalid spreadsheet",
		msg: UserMessage{
			Message: "No fue posible leer la hoja de cálculo",
			Action:  "Abra el archivo en Excel y guárdelo de nuevo como XLSX",
			Code:    "FILE007",
		},
	},

	// Validation
	{
		pattern: "invalid error report",
		msg: UserMessage{
			Message: "El reporte de errores no es válido",
			Action:  "Valide el archivo de nuevo y use el reporte generado",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid spot",
		msg: UserMessage{
			Message: "Uno o más spots están incompletos",
			Action:  "Cada spot necesita latitud, longitud, línea, posición y lote",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "La solicitud no tiene un formato válido",
			Action:  "Envíe un cuerpo JSON válido",
			Code:    "VAL003",
		},
	},

	// Processing
	{
		pattern: "too many concurrent validations",
		msg: UserMessage{
			Message: "El sistema está procesando otros archivos",
			Action:  "Espere un momento e intente de nuevo",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "La solicitud fue cancelada",
			Action:  "Intente de nuevo",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "La solicitud tardó demasiado",
			Action:  "Intente con un archivo más pequeño",
			Code:    "UPL003",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Demasiadas solicitudes",
			Action:  "Espere un momento antes de intentar de nuevo",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "Ocurrió un error inesperado",
	Action:  "Intente de nuevo o contacte a soporte",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first pattern match, or the ERR000 fallback.
//
// Example:
//
//	msg := MapError(tabular.ErrEmptyFile)
//	// msg.Code == "FILE005"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders an error as "Message (Código: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Código: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message. Error returns the
// user message; Unwrap returns the technical error for logging and errors.Is.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
