package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/pipeline"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog",
	}

	var out, highlightRun string
	xlsx := &cobra.Command{
		Use:   "xlsx",
		Short: "Write the latest snapshot as a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := pipeline.NewReconcileService(a.db, a.cfg)
			res, err := svc.Export(out, highlightRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s rows=%d highlighted=%d\n", res.Path, res.Rows, res.Highlighted)
			return nil
		},
	}
	xlsx.Flags().StringVar(&out, "out", "", "output path (default: OUTPUT_DIR/assignatures_<timestamp>.xlsx)")
	xlsx.Flags().StringVar(&highlightRun, "highlight-run", "", "compare run whose missing subjects are highlighted")

	cmd.AddCommand(xlsx)
	return cmd
}
