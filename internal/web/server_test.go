package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/spots/internal/config"
	"github.com/JonMunkholm/spots/internal/core"
	"github.com/JonMunkholm/spots/internal/sioma"
)

const spotsCSV = "Latitud,Longitud,Linea,Posicion,Lote\n" +
	"7.1,-76.1,A,1,L1\n" +
	"7.1,-76.1,A,2,L9\n" +
	"7.3,-76.3,B,1,\n"

type fakeSioma struct {
	configured bool
	fincas     []sioma.Sujeto
	err        error
	sent       []sioma.Spot
	sentFinca  string
}

func (f *fakeSioma) Configured() bool { return f.configured }

func (f *fakeSioma) Fincas(context.Context) ([]sioma.Sujeto, error) { return f.fincas, f.err }

func (f *fakeSioma) LotesDeFinca(_ context.Context, fincaID string) ([]sioma.Sujeto, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []sioma.Sujeto{{ID: "31", Nombre: "L1", FincaID: sioma.ID(fincaID)}}, nil
}

func (f *fakeSioma) SendSpots(_ context.Context, spots []sioma.Spot, fincaID string) (json.RawMessage, error) {
	f.sent, f.sentFinca = spots, fincaID
	return json.RawMessage(`{"ok":true}`), f.err
}

type staticLotes []string

func (l staticLotes) Lotes(context.Context, string) ([]string, error) { return l, nil }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeout: 10 * time.Second, ShutdownTimeout: time.Second},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: 10 * time.Second},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, sio SiomaAPI) *Server {
	t.Helper()
	svc := core.NewService(staticLotes{"L1"}, core.ServiceConfig{
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		Timeout:       cfg.Upload.Timeout,
	})
	s := NewServer(svc, sio, cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

// multipartBody builds a form with a file and extra fields.
func multipartBody(t *testing.T, fileName, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postFile(t *testing.T, s *Server, path, fileName, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fileName, content, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er), rec.Body.String())
	return er
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"spots-validator"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestValidateSpots(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	t.Run("report", func(t *testing.T) {
		rec := postFile(t, s, "/api/validate-spots", "spots.csv", spotsCSV, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		_, err := uuid.Parse(rec.Header().Get(ValidationIDHeader))
		assert.NoError(t, err)

		var report core.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.False(t, report.OK)
		assert.Equal(t, 3, report.Meta.RowsTotal)
		require.NotNil(t, report.Errors)
		assert.Len(t, report.Errors.DuplicateCoords, 1)
		assert.Len(t, report.Errors.Blanks, 1)
	})

	t.Run("explicit lotes", func(t *testing.T) {
		rec := postFile(t, s, "/api/validate-spots", "spots.csv", spotsCSV, map[string]string{
			"valid_lotes": `["L1", 7]`,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"lote_invalido":[{"row":3,"lote":"L9"}]`)
	})

	t.Run("finca lookup", func(t *testing.T) {
		rec := postFile(t, s, "/api/validate-spots", "spots.csv", spotsCSV, map[string]string{
			"finca_id": "12", "valid_lotes": "not json",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"lote_invalido":[{"row":3,"lote":"L9"}]`)
	})

	t.Run("no file", func(t *testing.T) {
		rec := postFile(t, s, "/api/validate-spots", "", "", map[string]string{"finca_id": "1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE004", decodeError(t, rec).Code)
	})

	t.Run("unsupported format", func(t *testing.T) {
		rec := postFile(t, s, "/api/validate-spots", "spots.xls", "x", nil)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		assert.Equal(t, "FILE006", decodeError(t, rec).Code)
	})

	t.Run("empty file", func(t *testing.T) {
		rec := postFile(t, s, "/api/validate-spots", "spots.csv", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE005", decodeError(t, rec).Code)
	})
}

func TestValidateSpots_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 16
	s := newTestServer(t, cfg, nil)

	rec := postFile(t, s, "/api/validate-spots", "spots.csv", spotsCSV, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestCorrectedFile(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	t.Run("json", func(t *testing.T) {
		rec := postFile(t, s, "/api/generate-corrected-file", "spots.csv", spotsCSV, map[string]string{
			"errors": `{"lote_invalido":[{"row":2}]}`,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Success     bool   `json:"success"`
			FileName    string `json:"filename"`
			Data        string `json:"data"`
			ErrorsCount int    `json:"errors_count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "spots_corregido.csv", resp.FileName)
		assert.Equal(t, 1, resp.ErrorsCount)
		assert.Contains(t, resp.Data, "7.1,-76.1,A,1,L1,ERROR,lote_invalido")
	})

	t.Run("download with drop", func(t *testing.T) {
		rec := postFile(t, s, "/api/generate-corrected-file?download=1", "spots.csv", spotsCSV, map[string]string{
			"drop_flagged": "true",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `"spots_corregido.csv"`)
		assert.Equal(t, "2", rec.Header().Get("X-Errors-Count"))
		assert.NotContains(t, rec.Body.String(), "L9")
		assert.Contains(t, rec.Body.String(), "valores_vacios")
	})

	t.Run("bad errors json", func(t *testing.T) {
		rec := postFile(t, s, "/api/generate-corrected-file", "spots.csv", spotsCSV, map[string]string{"errors": "[1]"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VAL001", decodeError(t, rec).Code)
	})
}

func TestStatsAndPoints(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := postFile(t, s, "/api/spots/stats", "spots.csv", spotsCSV, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_spots":3,"total_lotes":2,"total_lineas":2,"lotes":["L1","L9"],"lineas":["A","B"]}`, rec.Body.String())

	rec = postFile(t, s, "/api/spots/points", "spots.csv", spotsCSV, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var points PointsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	assert.Equal(t, 3, points.TotalSpots)
	assert.Len(t, points.Spots, 3)
}

func TestSioma(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, testConfig(), nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sioma/fincas", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "SIO001", decodeError(t, rec).Code)
	})

	t.Run("fincas", func(t *testing.T) {
		s := newTestServer(t, testConfig(), &fakeSioma{configured: true, fincas: []sioma.Sujeto{{ID: "1", Nombre: "Norte"}}})
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sioma/fincas", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"id":"1","nombre":"Norte","finca_id":""}]`, rec.Body.String())
	})

	t.Run("lotes upstream error", func(t *testing.T) {
		s := newTestServer(t, testConfig(), &fakeSioma{configured: true, err: &sioma.APIError{Status: 401, Body: "no"}})
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sioma/lotes?finca_id=12", nil))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "SIO002", decodeError(t, rec).Code)
	})

	t.Run("spots", func(t *testing.T) {
		fake := &fakeSioma{configured: true}
		s := newTestServer(t, testConfig(), fake)

		body := `{"finca_id": 12, "spots": [{"latitud": 7.1, "longitud": -76.1, "linea": 1, "posicion": 2, "lote": "L1"}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/sioma/spots", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"success":true,"sent":1,"response":{"ok":true}}`, rec.Body.String())
		assert.Equal(t, "12", fake.sentFinca)
		assert.Len(t, fake.sent, 1)
	})

	t.Run("invalid spot", func(t *testing.T) {
		s := newTestServer(t, testConfig(), &fakeSioma{configured: true})

		body := `{"spots": [{"latitud": 7.1, "linea": 1, "posicion": 2, "lote": "L1"}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/sioma/spots", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VAL002", decodeError(t, rec).Code)
	})
}

func TestPages(t *testing.T) {
	fake := &fakeSioma{configured: true, fincas: []sioma.Sujeto{{ID: "12", Nombre: "Finca <Norte>"}}}
	s := newTestServer(t, testConfig(), fake)

	t.Run("index", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `action="/validate"`)
		assert.Contains(t, rec.Body.String(), "Finca &lt;Norte&gt;")
	})

	t.Run("index without sioma", func(t *testing.T) {
		fake.err = errors.New("sioma request: timeout")
		defer func() { fake.err = nil }()

		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `name="finca_id" type="text"`)
	})

	t.Run("validate", func(t *testing.T) {
		rec := postFile(t, s, "/validate", "spots.csv", spotsCSV, map[string]string{"valid_lotes": "L1, L9"})
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<!doctype html>")
		assert.Contains(t, body, "Coordenadas duplicadas")
		assert.Contains(t, body, "Valores vacíos")
		assert.NotContains(t, body, "Lotes inválidos")
	})

	t.Run("validate htmx error", func(t *testing.T) {
		body, ct := multipartBody(t, "spots.txt", "x", nil)
		req := httptest.NewRequest(http.MethodPost, "/validate", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		assert.Contains(t, rec.Body.String(), `role="alert"`)
		assert.NotContains(t, rec.Body.String(), "<!doctype html>")
	})
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 2}
	s := newTestServer(t, cfg, nil)

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes[i] = rec.Code
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			assert.Equal(t, "RATE001", decodeError(t, rec).Code)
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/limiter", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/limiter", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active":0,"available":2,"max_concurrent":2}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")
}

func TestShutdownBeforeStart(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	require.NoError(t, s.Shutdown(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
