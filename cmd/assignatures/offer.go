package main

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/connectors"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/listener"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/output"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/pipeline"
)

func newOfferCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offer",
		Short: "Compare or merge an offer list against the catalog",
	}
	cmd.AddCommand(newOfferCompareCmd(a), newOfferMergeCmd(a), newOfferFetchMailCmd(a))
	return cmd
}

type compareView struct {
	RunID  string                    `json:"runId" yaml:"runId"`
	Result internal.ComparisonResult `json:"result" yaml:"result"`
}

func newOfferCompareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <offer.csv|xlsx|html|pdf|eml>",
		Short: "List offered codes missing from the catalog and catalog subjects missing from the offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := pipeline.NewReconcileService(a.db, a.cfg)
			res, err := svc.Compare(args[0])
			if err != nil {
				return err
			}
			return a.render(cmd, compareView{RunID: res.RunID, Result: res.Result}, comparisonTable(res.Result))
		},
	}
}

func newOfferMergeCmd(a *app) *cobra.Command {
	var codeField string
	cmd := &cobra.Command{
		Use:   "merge <offer.csv|xlsx|html|eml>",
		Short: "Fill empty catalog fields from the offer rows into a new snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := pipeline.NewReconcileService(a.db, a.cfg)
			res, err := svc.Merge(args[0], codeField)
			if err != nil {
				return err
			}
			table := output.Data{
				Headers: []string{"Run", "From snapshot", "New snapshot", "Matched", "Fields filled"},
				Rows: [][]string{{
					res.RunID, strconv.Itoa(res.Previous.ID), strconv.Itoa(res.Snapshot.ID),
					strconv.Itoa(res.Stats.Matched), strconv.Itoa(res.Stats.FieldsFilled),
				}},
			}
			return a.render(cmd, res, table)
		},
	}
	cmd.Flags().StringVar(&codeField, "code-field", "", "offer column holding the subject code (default: OFFER_CODE_FIELD)")
	return cmd
}

func newOfferFetchMailCmd(a *app) *cobra.Command {
	var provider, label string
	var max int
	cmd := &cobra.Command{
		Use:   "fetch-mail",
		Short: "Store unseen offer mails from a mailbox in the inbox directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := listener.NewMailConnector(cmd.Context(), a.cfg, provider)
			if err != nil {
				return err
			}
			if label == "" {
				label = a.cfg.MailLabel
			}
			if max <= 0 {
				max = a.cfg.MailFetchMax
			}
			res, err := connectors.NewInbox(a.db, a.cfg.InboxDir, conn).Fetch(cmd.Context(), label, max)
			if err != nil {
				return err
			}
			table := output.Data{Headers: []string{"Offer file"}}
			for _, p := range res.Offers {
				table.Rows = append(table.Rows, []string{p})
			}
			return a.render(cmd, res, table)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "imap", "imap|gmail")
	cmd.Flags().StringVar(&label, "label", "", "mailbox or label (default: MAIL_LABEL)")
	cmd.Flags().IntVar(&max, "max", 0, "max messages (default: MAIL_FETCH_MAX)")
	return cmd
}

func comparisonTable(res internal.ComparisonResult) output.Data {
	data := output.Data{Headers: []string{"Side", "Codi", "Detall"}}
	for _, row := range res.NotInCanonical {
		data.Rows = append(data.Rows, []string{"offer only", row[res.MatchedColumn], rowSummary(row, res.MatchedColumn)})
	}
	for _, s := range res.NotInCSV {
		data.Rows = append(data.Rows, []string{"catalog only", s.Code, s.Acronym + " " + s.Name})
	}
	return data
}

func rowSummary(row map[string]string, skip string) string {
	keys := make([]string, 0, len(row))
	for k, v := range row {
		if k != skip && v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += "; "
		}
		out += k + "=" + row[k]
	}
	return out
}
