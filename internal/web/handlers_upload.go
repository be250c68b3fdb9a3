package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/spots/internal/core"
	"github.com/JonMunkholm/spots/internal/tabular"
)

// ValidationIDHeader carries the id of a validation for log correlation.
const ValidationIDHeader = "X-Validation-ID"

// CorrectedFileResponse is the JSON form of a corrected file.
type CorrectedFileResponse struct {
	Success bool `json:"success"`
	*core.CorrectedFile
}

// PointsResponse lists the spots of a file for map display.
type PointsResponse struct {
	Spots      []core.Point `json:"spots"`
	TotalSpots int          `json:"total_spots"`
}

// handleValidateSpots validates an uploaded file and returns the report.
func (s *Server) handleValidateSpots(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	v, err := s.service.ValidateFile(r.Context(), core.ValidateRequest{
		FileName:   up.FileName,
		Data:       up.Data,
		ValidLotes: parseValidLotes(r, r.FormValue("valid_lotes")),
		FincaID:    r.FormValue("finca_id"),
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set(ValidationIDHeader, v.ID)
	writeJSON(w, http.StatusOK, v.Report)
}

// handleCorrectedFile annotates an uploaded file with Estado and Errores
// columns. With ?download=1 the CSV is sent as an attachment.
func (s *Server) handleCorrectedFile(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	out, err := s.service.CorrectFile(r.Context(), core.CorrectRequest{
		FileName:   up.FileName,
		Data:       up.Data,
		ErrorsJSON: []byte(r.FormValue("errors")),
		ValidLotes: parseValidLotes(r, r.FormValue("valid_lotes")),
		Options: tabular.AnnotateOptions{
			DropFlagged: parseBool(r.FormValue("drop_flagged")),
			DropBlank:   parseBool(r.FormValue("drop_blank")),
		},
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if parseBool(r.URL.Query().Get("download")) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(out.FileName))
		w.Header().Set("X-Errors-Count", strconv.Itoa(out.ErrorsCount))
		_, _ = w.Write([]byte(out.Data))
		return
	}

	writeJSON(w, http.StatusOK, CorrectedFileResponse{Success: true, CorrectedFile: out})
}

// handleSpotStats returns spot and grouping counts for an uploaded file.
func (s *Server) handleSpotStats(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	stats, err := s.service.Stats(r.Context(), up.FileName, up.Data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleSpotPoints returns the spots of an uploaded file as map points.
func (s *Server) handleSpotPoints(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	points, err := s.service.Points(r.Context(), up.FileName, up.Data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, PointsResponse{Spots: points, TotalSpots: len(points)})
}
