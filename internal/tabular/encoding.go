package tabular

// encoding.go prepares raw CSV bytes for encoding/csv.
//
// Uploads come from field teams exporting out of Excel on Windows, so two
// problems show up often:
//
//   - A UTF-8 BOM (0xEF 0xBB 0xBF) glued to the first header name
//   - Files saved as Windows-1252 ("ANSI"), where "Línea" is not valid UTF-8
//
// decodeText strips the BOM and transcodes non-UTF-8 input. sniffDelimiter
// picks the separator from the header line.

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidate separators, in tie-break order
var delimiters = []rune{',', ';', '\t'}

// decodeText returns data as UTF-8 without a leading BOM. Input that is not
// valid UTF-8 is assumed to be Windows-1252.
func decodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	return charmap.Windows1252.NewDecoder().Bytes(data)
}

// firstLine returns the bytes up to the first line break.
func firstLine(text []byte) []byte {
	if i := bytes.IndexAny(text, "\r\n"); i >= 0 {
		return text[:i]
	}
	return text
}

// sniffDelimiter returns the candidate separator that occurs most often in
// line outside double quotes. Comma wins ties and lines with no separator.
func sniffDelimiter(line []byte) rune {
	counts := make(map[rune]int, len(delimiters))
	inQuotes := false
	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := delimiters[0]
	for _, d := range delimiters[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
