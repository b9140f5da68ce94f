package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/output"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded compare and merge runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := a.db.ListRuns(limit)
			if err != nil {
				return err
			}
			table := output.Data{Headers: []string{"Run", "Kind", "Snapshot", "Offer", "Column", "Offer only", "Catalog only", "Missing", "Created"}}
			for _, r := range runs {
				table.Rows = append(table.Rows, []string{
					r.RunID, r.Kind, strconv.Itoa(r.SnapshotID), r.OfferPath, r.MatchedColumn,
					strconv.Itoa(r.NotInCanonicalCount), strconv.Itoa(r.NotInCSVCount),
					strings.Join(r.MissingCodes, " "), r.CreatedAt,
				})
			}
			return a.render(cmd, runs, table)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "number of runs")

	cmd.AddCommand(list)
	return cmd
}
