package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/catalog"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/config"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/connectors"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/listener"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/logging"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/pipeline"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/settings"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	st := settings.NewService(cfg.SettingsPath, cfg.GitHubToken)
	must(st.Load())

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(
		catalog.NewSyncService(db, st, cfg),
		pipeline.NewReconcileService(db, cfg),
		cfg,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logging.WithLogger(ctx, &logger)

	if cfg.WatchMailSource != "" {
		conn, err := listener.NewMailConnector(ctx, cfg, cfg.WatchMailSource)
		must(err)
		svc.WithInbox(connectors.NewInbox(db, cfg.InboxDir, conn))
	}

	logger.Info().Str("offer", cfg.WatchOfferPath).Int("intervalSec", cfg.WatchIntervalSec).Str("mail", cfg.WatchMailSource).Msg("offer watcher started")
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
