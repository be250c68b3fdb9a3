package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/spots/internal/core"
	"github.com/JonMunkholm/spots/internal/logging"
	"github.com/JonMunkholm/spots/internal/web/templates"
)

// fincaListTimeout bounds the Sioma call made while rendering the index page.
const fincaListTimeout = 5 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Service: ServiceName})
}

// handleLimiterStatus returns the current state of the validation limiter.
// Used for monitoring and to check if the service can accept more files.
func (s *Server) handleLimiterStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LimiterStatus())
}

// handleIndex renders the upload form. Fincas are listed when Sioma is
// reachable; otherwise the form falls back to a free-text finca id.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	params := templates.UploadPageParams{MaxFileSize: s.cfg.Upload.MaxFileSize}

	if s.sioma != nil && s.sioma.Configured() {
		ctx, cancel := context.WithTimeout(r.Context(), fincaListTimeout)
		fincas, err := s.sioma.Fincas(ctx)
		cancel()
		if err != nil {
			logging.FromContext(r.Context()).Warn("listing fincas for upload page", "error", err)
		} else {
			for _, f := range fincas {
				params.Fincas = append(params.Fincas, templates.Finca{ID: string(f.ID), Nombre: f.Nombre})
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.UploadPage(params).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render upload page", "error", err)
	}
}

// handleValidatePage validates a file posted from the upload form and renders
// the report. HTMX requests get the report fragment only.
func (s *Server) handleValidatePage(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	v, err := s.service.ValidateFile(r.Context(), core.ValidateRequest{
		FileName:   up.FileName,
		Data:       up.Data,
		ValidLotes: splitList(r.FormValue("valid_lotes")),
		FincaID:    r.FormValue("finca_id"),
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	params := templates.ReportPageParams{FileName: up.FileName, ValidationID: v.ID, Report: v.Report}
	view := templates.ReportPage(params)
	if isHTMX(r) {
		view = templates.ReportView(params)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(ValidationIDHeader, v.ID)
	if err := view.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render report", "error", err)
	}
}
