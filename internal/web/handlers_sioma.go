package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/spots/internal/sioma"
)

// SendSpotsRequest is the body of POST /api/sioma/spots.
type SendSpotsRequest struct {
	Spots   []sioma.Spot `json:"spots"`
	FincaID sioma.ID     `json:"finca_id"`
}

func (s *Server) siomaReady(w http.ResponseWriter, r *http.Request) bool {
	if s.sioma == nil || !s.sioma.Configured() {
		s.respondError(w, r, sioma.ErrNotConfigured, 0)
		return false
	}
	return true
}

// handleSiomaFincas proxies the finca list.
func (s *Server) handleSiomaFincas(w http.ResponseWriter, r *http.Request) {
	if !s.siomaReady(w, r) {
		return
	}

	fincas, err := s.sioma.Fincas(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, fincas)
}

// handleSiomaLotes proxies the lote list, filtered by ?finca_id when given.
func (s *Server) handleSiomaLotes(w http.ResponseWriter, r *http.Request) {
	if !s.siomaReady(w, r) {
		return
	}

	lotes, err := s.sioma.LotesDeFinca(r.Context(), r.URL.Query().Get("finca_id"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, lotes)
}

// handleSiomaSpots checks and forwards spots to Sioma.
func (s *Server) handleSiomaSpots(w http.ResponseWriter, r *http.Request) {
	if !s.siomaReady(w, r) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	var req SendSpotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err), 0)
		return
	}
	if err := sioma.ValidateSpots(req.Spots); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	resp, err := s.sioma.SendSpots(r.Context(), req.Spots, string(req.FincaID))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"sent":     len(req.Spots),
		"response": resp,
	})
}
