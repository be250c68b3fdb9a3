package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/spots/internal/core"
	"github.com/JonMunkholm/spots/internal/tabular"
)

type annotateOptions struct {
	report      string
	output      string
	lotes       string
	dropFlagged bool
	dropBlank   bool
}

func newAnnotateCmd() *cobra.Command {
	opts := &annotateOptions{}

	cmd := &cobra.Command{
		Use:   "annotate FILE",
		Short: "Write a corrected CSV with Estado and Errores columns",
		Long: `annotate copies FILE as CSV and adds an Estado column (OK or ERROR) and an
Errores column listing the problems of each row. Without --report the file is
validated first.`,
		Example: `  spotcheck annotate spots.xlsx
  spotcheck validate spots.csv > report.json; spotcheck annotate spots.csv --report report.json -o fixed.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.report, "report", "", "validation report or error map (JSON)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path (default <name>_corregido.csv, - for stdout)")
	cmd.Flags().StringVar(&opts.lotes, "lotes", "", "comma-separated valid lotes, used when validating")
	cmd.Flags().BoolVar(&opts.dropFlagged, "drop-flagged", false, "leave out rows with errors other than blank values")
	cmd.Flags().BoolVar(&opts.dropBlank, "drop-blank", false, "leave out rows with blank values")
	return cmd
}

func runAnnotate(cmd *cobra.Command, path string, opts *annotateOptions) error {
	name, data, err := readInput(cmd, path, "")
	if err != nil {
		return err
	}

	var errorsJSON []byte
	if opts.report != "" {
		if errorsJSON, err = os.ReadFile(opts.report); err != nil {
			return fmt.Errorf("read report: %w", err)
		}
	}

	svc, cleanup, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := svc.CorrectFile(cmd.Context(), core.CorrectRequest{
		FileName:   name,
		Data:       data,
		ErrorsJSON: errorsJSON,
		ValidLotes: splitCSVFlag(opts.lotes),
		Options:    tabular.AnnotateOptions{DropFlagged: opts.dropFlagged, DropBlank: opts.dropBlank},
	})
	if err != nil {
		return err
	}

	dest := opts.output
	if dest == "" {
		dest = out.FileName
	}
	if dest == "-" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), out.Data)
		return err
	}
	if err := os.WriteFile(dest, []byte(out.Data), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d filas con errores\n", dest, out.ErrorsCount)
	return nil
}
