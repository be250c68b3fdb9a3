// Package sioma is a client for the Sioma platform API.
//
// Sioma models fincas and lotes as "sujetos" of different types, listed
// through one endpoint filtered by a tipo-sujetos header. The client also
// submits validated spots. It implements core.LoteSource so a finca id on an
// upload can be turned into a lote whitelist.
package sioma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/spots/internal/logging"
)

// Defaults for Config.
const (
	DefaultBaseURL = "https://api.sioma.dev"
	DefaultTimeout = 30 * time.Second
)

// Sujeto type ids understood by the tipo-sujetos header.
const (
	TipoFinca = 1
	TipoLote  = 3
)

// ErrNotConfigured is returned by every call when no API token is set.
var ErrNotConfigured = errors.New("sioma not configured: missing api token")

// APIError is a non-2xx response from Sioma.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sioma api error: status %d: %s", e.Status, e.Body)
}

// Config holds connection settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the Sioma API. Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client. Empty fields fall back to the defaults.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API token is set.
func (c *Client) Configured() bool {
	return c.token != ""
}

// Sujetos lists the sujetos of the given types.
func (c *Client) Sujetos(ctx context.Context, tipos ...int) ([]Sujeto, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	tiposHeader, err := json.Marshal(tipos)
	if err != nil {
		return nil, fmt.Errorf("encode tipo-sujetos: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/4/usuarios/sujetos", nil)
	if err != nil {
		return nil, fmt.Errorf("sioma request: %w", err)
	}
	req.Header.Set("tipo-sujetos", string(tiposHeader))

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	sujetos, err := decodeSujetos(body)
	if err != nil {
		return nil, fmt.Errorf("sioma request: decode sujetos: %w", err)
	}
	return sujetos, nil
}

// Fincas lists the fincas visible to the token.
func (c *Client) Fincas(ctx context.Context) ([]Sujeto, error) {
	return c.Sujetos(ctx, TipoFinca)
}

// LotesDeFinca lists lote sujetos. With a finca id, lotes that declare a
// different finca_id are left out; lotes without one are kept.
func (c *Client) LotesDeFinca(ctx context.Context, fincaID string) ([]Sujeto, error) {
	all, err := c.Sujetos(ctx, TipoLote)
	if err != nil {
		return nil, err
	}
	if fincaID == "" {
		return all, nil
	}

	out := make([]Sujeto, 0, len(all))
	for _, s := range all {
		if s.FincaID == "" || string(s.FincaID) == fincaID {
			out = append(out, s)
		}
	}
	return out, nil
}

// Lotes returns the lote names of a finca. It satisfies core.LoteSource.
func (c *Client) Lotes(ctx context.Context, fincaID string) ([]string, error) {
	sujetos, err := c.LotesDeFinca(ctx, fincaID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(sujetos))
	for _, s := range sujetos {
		if s.Nombre != "" {
			names = append(names, s.Nombre)
		}
	}
	return names, nil
}

// SendSpots submits spots, optionally tagged with a finca, and returns the
// response body as received.
func (c *Client) SendSpots(ctx context.Context, spots []Spot, fincaID string) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	payload := struct {
		Spots   []Spot `json:"spots"`
		FincaID string `json:"finca_id,omitempty"`
	}{Spots: spots, FincaID: fincaID}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode spots: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/4/puntos", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sioma request: %w", err)
	}

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 || !json.Valid(body) {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

// do sends req with the auth headers and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log := logging.FromContext(ctx).With("method", req.Method, "url", req.URL.String())
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("sioma request failed", "error", err)
		return nil, fmt.Errorf("sioma request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sioma request: read body: %w", err)
	}

	log.Debug("sioma response", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("sioma api error", "status", resp.StatusCode, "body", truncate(string(body), 200))
		return nil, &APIError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
