package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Count spots, lotes and lineas in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, data, err := readInput(cmd, args[0], "")
			if err != nil {
				return err
			}

			svc, cleanup, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := svc.Stats(cmd.Context(), name, data)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return json.NewEncoder(cmd.OutOrStdout()).Encode(st)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(st)
			case "table":
			default:
				return fmt.Errorf("unknown format %q", format)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendRows([]table.Row{
				{"spots", st.TotalSpots},
				{"lotes", st.TotalLotes},
				{"lineas", st.TotalLineas},
				{"lotes encontrados", strings.Join(st.Lotes, ", ")},
			})
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json|yaml)")
	return cmd
}
