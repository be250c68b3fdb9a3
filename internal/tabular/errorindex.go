package tabular

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidErrorIndex is returned when an error report cannot be read.
var ErrInvalidErrorIndex = errors.New("invalid error report")

// ParseErrorIndex reads a JSON object mapping category names to lists of
// records and returns the row numbers per category, in document order.
//
// A full validation report is accepted too: its "errors" member is used and
// everything else is ignored. Records that are not objects or lack an integral
// "row" are skipped, as are categories whose value is not a list.
func ParseErrorIndex(data []byte) ([]CategoryRows, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidErrorIndex, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidErrorIndex)
	}

	var out []CategoryRows
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidErrorIndex, err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidErrorIndex, key, err)
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}

		switch raw[0] {
		case '{':
			if key == "errors" {
				return ParseErrorIndex(raw)
			}
		case '[':
			out = append(out, CategoryRows{Category: key, Rows: recordRows(raw)})
		}
	}

	return out, nil
}

// recordRows extracts the "row" member of every object in a JSON list.
func recordRows(list json.RawMessage) []int {
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil
	}

	rows := make([]int, 0, len(items))
	for _, item := range items {
		var rec struct {
			Row *float64 `json:"row"`
		}
		if err := json.Unmarshal(item, &rec); err != nil || rec.Row == nil {
			continue
		}
		if *rec.Row != math.Trunc(*rec.Row) {
			continue
		}
		rows = append(rows, int(*rec.Row))
	}
	return rows
}
