package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/spots/internal/logging"
	"github.com/JonMunkholm/spots/internal/tabular"
)

// DefaultTimeout bounds one service call, including the wait for a slot.
const DefaultTimeout = 2 * time.Minute

// ErrNoLoteSource is returned when a finca id is given but no lote source is
// configured.
var ErrNoLoteSource = errors.New("no lote source configured")

// LoteSource returns the valid lote names of a finca.
type LoteSource interface {
	Lotes(ctx context.Context, fincaID string) ([]string, error)
}

// ServiceConfig holds the admission limits applied around the engine.
type ServiceConfig struct {
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
}

// Service decodes uploaded files, resolves lote whitelists and runs the
// validation engine under a concurrency limit. It keeps no state between
// calls other than the limiter.
type Service struct {
	lotes   LoteSource
	limiter *Limiter
	timeout time.Duration
}

// NewService creates a Service. lotes may be nil, in which case finca ids
// cannot be resolved to whitelists.
func NewService(lotes LoteSource, cfg ServiceConfig) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		lotes:   lotes,
		limiter: NewLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		timeout: timeout,
	}
}

// ValidateRequest is one file to validate.
type ValidateRequest struct {
	FileName string
	Data     []byte

	// ValidLotes, when non-empty, is the whitelist. Otherwise FincaID, when
	// set, is resolved through the LoteSource.
	ValidLotes []string
	FincaID    string
}

// Validation is the outcome of ValidateFile.
type Validation struct {
	ID     string
	Report *Report
}

// ValidateFile decodes and validates one file. Decode failures are returned as
// errors; rule violations are in the report. A failed lote lookup does not
// fail the call: the report carries a warning and the whitelist check is
// skipped.
func (s *Service) ValidateFile(ctx context.Context, req ValidateRequest) (*Validation, error) {
	id := uuid.New().String()
	ctx = logging.ContextWithValidationID(ctx, id)
	log := logging.WithFields(ctx, "file", req.FileName, "finca_id", req.FincaID)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		log.Warn("validation rejected", "error", err)
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	table, err := tabular.Decode(req.FileName, req.Data)
	if err != nil {
		log.Warn("decode failed", "error", err)
		return nil, fmt.Errorf("decode %s: %w", req.FileName, err)
	}

	whitelist, warning := s.resolveWhitelist(ctx, req)

	report := ValidateSpots(table, whitelist)
	if warning != "" {
		report.Warnings = append(report.Warnings, warning)
	}

	log.Info("validation finished",
		"ok", report.OK,
		"rows", report.Meta.RowsTotal,
		"errors", report.Errors.Count(),
		"whitelist", len(whitelist),
		"duration", time.Since(start),
	)

	return &Validation{ID: id, Report: report}, nil
}

// resolveWhitelist picks the lote whitelist for req. The second result is a
// report warning, set when a finca lookup was wanted but failed.
func (s *Service) resolveWhitelist(ctx context.Context, req ValidateRequest) ([]string, string) {
	if len(req.ValidLotes) > 0 || req.FincaID == "" {
		return req.ValidLotes, ""
	}

	lotes, err := s.Lotes(ctx, req.FincaID)
	if err != nil {
		logging.FromContext(ctx).Warn("lote lookup failed, skipping whitelist check",
			"finca_id", req.FincaID, "error", err)
		return nil, fmt.Sprintf(
			"No fue posible obtener los lotes de la finca %s; no se validaron los lotes", req.FincaID)
	}
	return lotes, ""
}

// Lotes returns the valid lote names for fincaID from the configured source.
func (s *Service) Lotes(ctx context.Context, fincaID string) ([]string, error) {
	if s.lotes == nil {
		return nil, ErrNoLoteSource
	}
	lotes, err := s.lotes.Lotes(ctx, fincaID)
	if err != nil {
		return nil, fmt.Errorf("lote lookup for finca %s: %w", fincaID, err)
	}
	return lotes, nil
}

// CorrectRequest is a file to annotate with validation results.
type CorrectRequest struct {
	FileName string
	Data     []byte

	// ErrorsJSON is a category map or a full report. When empty the file is
	// validated first and its own report is used.
	ErrorsJSON []byte
	ValidLotes []string

	Options tabular.AnnotateOptions
}

// CorrectedFile is an annotated CSV ready for download.
type CorrectedFile struct {
	FileName    string `json:"filename"`
	Data        string `json:"data"`
	ErrorsCount int    `json:"errors_count"`
}

// CorrectFile re-emits the uploaded file with Estado and Errores columns.
func (s *Service) CorrectFile(ctx context.Context, req CorrectRequest) (*CorrectedFile, error) {
	log := logging.WithFields(ctx, "file", req.FileName)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	table, err := tabular.Decode(req.FileName, req.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", req.FileName, err)
	}

	var categories []tabular.CategoryRows
	if len(req.ErrorsJSON) > 0 {
		categories, err = tabular.ParseErrorIndex(req.ErrorsJSON)
		if err != nil {
			return nil, err
		}
	} else {
		categories = ValidateSpots(table, req.ValidLotes).Errors.Categories()
	}

	annotated := tabular.Annotate(table, categories, req.Options)
	data, err := annotated.CSV()
	if err != nil {
		return nil, fmt.Errorf("write corrected file: %w", err)
	}

	log.Info("corrected file generated",
		"rows", len(annotated.Rows),
		"flagged", annotated.Flagged,
		"drop_flagged", req.Options.DropFlagged,
		"drop_blank", req.Options.DropBlank,
	)

	return &CorrectedFile{
		FileName:    tabular.CorrectedFileName(req.FileName),
		Data:        data,
		ErrorsCount: annotated.Flagged,
	}, nil
}

// Stats decodes a file and summarizes its spots.
func (s *Service) Stats(ctx context.Context, fileName string, data []byte) (Stats, error) {
	table, err := s.decode(ctx, fileName, data)
	if err != nil {
		return Stats{}, err
	}
	return SpotStats(table), nil
}

// Points decodes a file and returns its spots as map points.
func (s *Service) Points(ctx context.Context, fileName string, data []byte) ([]Point, error) {
	table, err := s.decode(ctx, fileName, data)
	if err != nil {
		return nil, err
	}
	return SpotPoints(table), nil
}

func (s *Service) decode(ctx context.Context, fileName string, data []byte) (tabular.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return tabular.Table{}, err
	}
	defer s.limiter.Release()

	table, err := tabular.Decode(fileName, data)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("decode %s: %w", fileName, err)
	}
	return table, nil
}

// LimiterStatus reports the current admission state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// Drain waits for in-flight calls to finish. Used on shutdown.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
