package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/spots/internal/logging"
)

// formOverhead is body room allowed beyond the file size for other form fields.
const formOverhead = 1 << 20

// upload is a file read from a multipart form.
type upload struct {
	FileName string
	Data     []byte
}

// readUpload parses the multipart form and reads its "file" field, enforcing
// the configured size limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload{}, fmt.Errorf("%w: limit %d bytes", errBodyTooLarge, maxSize)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return upload{}, errNoFile
		}
		return upload{}, fmt.Errorf("%w: %v", errInvalidBody, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return upload{}, errNoFile
	}
	defer file.Close()

	if header.Size > maxSize {
		return upload{}, fmt.Errorf("%w: file is %d bytes, limit %d", errBodyTooLarge, header.Size, maxSize)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return upload{}, fmt.Errorf("read upload: %w", err)
	}
	return upload{FileName: header.Filename, Data: data}, nil
}

// parseValidLotes reads a JSON array of lote names. Numbers are accepted and
// formatted as text. An unparseable value is logged and ignored.
func parseValidLotes(r *http.Request, raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var values []any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		logging.FromContext(r.Context()).Warn("ignoring unparseable valid_lotes", "error", err)
		return nil
	}

	lotes := make([]string, 0, len(values))
	for _, v := range values {
		var s string
		switch t := v.(type) {
		case string:
			s = strings.TrimSpace(t)
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		}
		if s != "" {
			lotes = append(lotes, s)
		}
	}
	return lotes
}

// splitList splits a comma-separated form value, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBool reads a form or query flag: 1, true, on and yes are true.
func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
