package sioma

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ID is an identifier Sioma may send as a JSON string or number.
// It is always held and re-encoded as a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("id must be a string or number: %w", err)
		}
		*id = ID(n.String())
	}
	return nil
}

// Sujeto is a finca or lote as listed by Sioma. Fields the service does not
// use are kept verbatim so proxied responses are not lossy.
type Sujeto struct {
	ID      ID     `json:"id"`
	Nombre  string `json:"nombre"`
	FincaID ID     `json:"finca_id"`

	raw json.RawMessage
}

func (s *Sujeto) UnmarshalJSON(b []byte) error {
	type plain Sujeto
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = Sujeto(p)
	s.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (s Sujeto) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	type plain Sujeto
	return json.Marshal(plain(s))
}

// decodeSujetos accepts a bare array or an object wrapping it in "data".
func decodeSujetos(body []byte) ([]Sujeto, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var wrapped struct {
			Data []Sujeto `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, err
		}
		return wrapped.Data, nil
	}

	var out []Sujeto
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Spot is one point submitted to Sioma. Linea, Posicion and Lote are passed
// through as sent by the caller, string or number.
type Spot struct {
	Latitud  *float64        `json:"latitud"`
	Longitud *float64        `json:"longitud"`
	Linea    json.RawMessage `json:"linea"`
	Posicion json.RawMessage `json:"posicion"`
	Lote     json.RawMessage `json:"lote"`
}

// Validate checks that coordinates are finite numbers and the placement
// fields are present and non-empty.
func (s Spot) Validate() error {
	if s.Latitud == nil || math.IsNaN(*s.Latitud) || math.IsInf(*s.Latitud, 0) {
		return errors.New("latitud must be numeric")
	}
	if s.Longitud == nil || math.IsNaN(*s.Longitud) || math.IsInf(*s.Longitud, 0) {
		return errors.New("longitud must be numeric")
	}
	fields := []struct {
		name string
		v    json.RawMessage
	}{{"linea", s.Linea}, {"posicion", s.Posicion}, {"lote", s.Lote}}
	for _, f := range fields {
		if isEmptyJSON(f.v) {
			return fmt.Errorf("%s is required", f.name)
		}
	}
	return nil
}

// ValidateSpots checks every spot and reports the first invalid one.
func ValidateSpots(spots []Spot) error {
	if len(spots) == 0 {
		return errors.New("invalid spot: no spots given")
	}
	for i, s := range spots {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid spot %d: %w", i, err)
		}
	}
	return nil
}

func isEmptyJSON(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return true
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return true
		}
		return len(bytes.TrimSpace([]byte(s))) == 0
	}
	return false
}
