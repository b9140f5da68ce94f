package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/config"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/logging"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/output"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/settings"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/storage"
)

type app struct {
	cfg      config.Config
	db       *storage.DB
	settings *settings.Service
	format   output.Format

	outputFlag string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	if a.db != nil {
		_ = a.db.Close()
	}
	must(err)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "assignatures",
		Short:         "Gestor del catàleg d'assignatures",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.outputFlag, "output", "o", "", "output format: table|json|yaml")

	root.AddCommand(
		newCatalogCmd(a),
		newOfferCmd(a),
		newExportCmd(a),
		newSettingsCmd(a),
		newRunsCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	cmd.SetContext(logging.WithLogger(cmd.Context(), &logger))

	if a.format, err = output.ParseFormat(a.outputFlag); err != nil {
		return err
	}

	a.settings = settings.NewService(cfg.SettingsPath, cfg.GitHubToken)
	if err := a.settings.Load(); err != nil {
		return err
	}

	a.db, err = storage.Open(cfg.DBPath)
	return err
}

func (a *app) render(cmd *cobra.Command, value any, table output.Data) error {
	return output.Render(cmd.OutOrStdout(), a.format, value, table)
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
