package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/spots/internal/core"
)

type validateOptions struct {
	lotes  string
	finca  string
	name   string
	format string
	pretty bool
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a spots file and print the report",
		Example: `  spotcheck validate spots.csv
  spotcheck validate spots.xlsx --lotes L1,L2 --format table
  cat spots.csv | spotcheck validate - --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.lotes, "lotes", "", "comma-separated valid lotes")
	cmd.Flags().StringVar(&opts.finca, "finca", "", "finca id whose lotes are valid (when --lotes is not given)")
	cmd.Flags().StringVar(&opts.name, "name", "", "file name for stdin input, used to pick the format")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "output format (json|yaml|table)")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent json output")

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml", "table"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runValidate(cmd *cobra.Command, path string, opts *validateOptions) error {
	name, data, err := readInput(cmd, path, opts.name)
	if err != nil {
		return err
	}

	svc, cleanup, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	v, err := svc.ValidateFile(cmd.Context(), core.ValidateRequest{
		FileName:   name,
		Data:       data,
		ValidLotes: splitCSVFlag(opts.lotes),
		FincaID:    opts.finca,
	})
	if err != nil {
		return err
	}

	if err := renderReport(cmd.OutOrStdout(), v.Report, opts.format, opts.pretty); err != nil {
		return err
	}
	if !v.Report.OK {
		return errNotOK
	}
	return nil
}

func renderReport(w io.Writer, r *core.Report, format string, pretty bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		if pretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(r)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "table":
		renderReportTable(w, r)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want json, yaml or table)", format)
	}
}
