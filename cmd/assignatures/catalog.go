package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/catalog"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/output"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/pipeline"
)

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Fetch, import, push and inspect the canonical catalog",
	}
	cmd.AddCommand(newCatalogFetchCmd(a), newCatalogImportCmd(a), newCatalogPushCmd(a), newCatalogShowCmd(a))
	return cmd
}

func newCatalogFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Read the catalog from GitHub and store it as a new snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := catalog.NewSyncService(a.db, a.settings, a.cfg)
			snap, err := svc.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, snap, snapshotTable(snap))
		},
	}
}

func newCatalogImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Store a local catalog document as a new snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := catalog.NewSyncService(a.db, a.settings, a.cfg)
			snap, err := svc.ImportFile(args[0])
			if err != nil {
				return err
			}
			return a.render(cmd, snap, snapshotTable(snap))
		},
	}
}

func newCatalogPushCmd(a *app) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Write the latest snapshot back to GitHub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := catalog.NewSyncService(a.db, a.settings, a.cfg)
			rev, err := svc.Push(cmd.Context(), message)
			if errors.Is(err, catalog.ErrConflict) {
				return fmt.Errorf("%w; run catalog fetch and merge again", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog pushed revision=%s\n", rev)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}

func newCatalogShowCmd(a *app) *cobra.Command {
	var snapshotID int
	var document bool
	cmd := &cobra.Command{
		Use:   "show [code|acronym...]",
		Short: "List the subjects of a snapshot, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshot(snapshotID)
			if err != nil {
				return err
			}
			subjects, err := a.db.ListSubjects(snap.ID)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				idx := catalog.BuildIndex(subjects)
				var filtered []internal.Subject
				for _, q := range args {
					filtered = append(filtered, idx.Lookup(q)...)
				}
				subjects = filtered
			}

			if document {
				blob, err := pipeline.EncodeDocument(subjects, snap.Shape)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(append(blob, '\n'))
				return err
			}
			return a.render(cmd, subjects, subjectsTable(subjects))
		},
	}
	cmd.Flags().IntVar(&snapshotID, "snapshot", 0, "snapshot id (default: latest)")
	cmd.Flags().BoolVar(&document, "document", false, "print the catalog document instead of a listing")
	return cmd
}

func (a *app) snapshot(id int) (internal.Snapshot, error) {
	var snap *internal.Snapshot
	var err error
	if id > 0 {
		snap, err = a.db.GetSnapshot(id)
	} else {
		snap, err = a.db.LatestSnapshot()
	}
	if err != nil {
		return internal.Snapshot{}, err
	}
	if snap == nil {
		if id > 0 {
			return internal.Snapshot{}, fmt.Errorf("snapshot not found: %d", id)
		}
		return internal.Snapshot{}, pipeline.ErrNoSnapshot
	}
	return *snap, nil
}

func snapshotTable(s internal.Snapshot) output.Data {
	return output.Data{
		Headers: []string{"Snapshot", "Source", "Revision", "Shape", "Blocks", "Subjects", "Created"},
		Rows: [][]string{{
			strconv.Itoa(s.ID), s.Source, s.Revision, string(s.Shape),
			strconv.Itoa(s.GroupCount), strconv.Itoa(s.SubjectCount), s.CreatedAt,
		}},
	}
}

func subjectsTable(subjects []internal.Subject) output.Data {
	data := output.Data{Headers: []string{"Codi", "Sigles", "Nom", "Crèdits", "Programes", "Blocs"}}
	for _, s := range subjects {
		credits, _ := s.Field(internal.FieldCredits)
		programs := make([]string, 0, len(s.Groups))
		for _, g := range s.Groups {
			programs = append(programs, pipeline.ProgramLabel(g.Program))
		}
		data.Rows = append(data.Rows, []string{
			s.Code, s.Acronym, s.Name, credits, strings.Join(programs, ", "), s.BlockNameSummary,
		})
	}
	return data
}
