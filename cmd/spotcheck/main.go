// Command spotcheck validates spot files from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/spots/internal/catalog"
	"github.com/JonMunkholm/spots/internal/config"
	"github.com/JonMunkholm/spots/internal/core"
	"github.com/JonMunkholm/spots/internal/logging"
	"github.com/JonMunkholm/spots/internal/sioma"
)

// errNotOK makes validate exit with status 1 without printing an error.
var errNotOK = errors.New("report has errors")

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	switch {
	case err == nil:
	case errors.Is(err, errNotOK):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "error:", core.FormatUserError(err))
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "spotcheck",
		Short: "Validate spot files before loading them into Sioma",
		Long: `spotcheck checks CSV and XLSX spot files: required columns, blank values,
coordinate ranges, duplicate coordinates and placements, and lote whitelists.

Environment (also read from .env):
  SIOMA_API_TOKEN, SIOMA_API_BASE  resolve --finca through Sioma
  DATABASE_URL                     resolve --finca through the lote catalog`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			_ = godotenv.Load()
			logging.SetupWriter(cmd.ErrOrStderr(), opts.logLevel, "text")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newAnnotateCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newCatalogCmd())
	return cmd
}

// readInput reads a file argument; "-" is stdin, named by --name.
func readInput(cmd *cobra.Command, path, name string) (string, []byte, error) {
	if path == "-" {
		if name == "" {
			name = "stdin.csv"
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		return name, data, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}
	return path, data, nil
}

// newService builds a service whose lote source follows the server's choice:
// the catalog when DATABASE_URL is set, else Sioma when a token is set.
// The returned cleanup closes any pool.
func newService(ctx context.Context) (*core.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var (
		lotes   core.LoteSource
		cleanup = func() {}
	)
	switch {
	case cfg.Catalog.Enabled():
		pool, err := catalog.Connect(ctx, catalog.PoolConfig{URL: cfg.Catalog.URL, MaxConns: 2})
		if err != nil {
			return nil, nil, err
		}
		lotes, cleanup = catalog.New(pool), pool.Close
	case cfg.Sioma.Token != "":
		lotes = sioma.NewClient(sioma.Config{BaseURL: cfg.Sioma.BaseURL, Token: cfg.Sioma.Token, Timeout: cfg.Sioma.Timeout})
	}

	svc := core.NewService(lotes, core.ServiceConfig{MaxConcurrent: 1, Timeout: cfg.Upload.Timeout})
	return svc, cleanup, nil
}

func splitCSVFlag(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
