package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/config"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/connectors"
	gmailconnector "github.com/sambrocindrela-ctrl/gestor-assignatures/internal/connectors/gmail"
	imapconnector "github.com/sambrocindrela-ctrl/gestor-assignatures/internal/connectors/imap"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/logging"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/pipeline"
)

// Fetcher refreshes the canonical snapshot. *catalog.SyncService satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context) (internal.Snapshot, error)
}

type Service struct {
	fetcher    Fetcher
	reconciler *pipeline.ReconcileService
	inbox      *connectors.Inbox
	cfg        config.Config
	now        func() time.Time
}

func NewService(fetcher Fetcher, reconciler *pipeline.ReconcileService, cfg config.Config) *Service {
	return &Service{fetcher: fetcher, reconciler: reconciler, cfg: cfg, now: time.Now}
}

// WithInbox makes each cycle pull offer mails first. The newest offer found
// replaces the configured offer file for that cycle.
func (s *Service) WithInbox(inbox *connectors.Inbox) *Service {
	s.inbox = inbox
	return s
}

// NewMailConnector builds the mailbox connector for provider ("imap" or "gmail").
func NewMailConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "imap":
		return imapconnector.NewConnector(cfg)
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}

// Run repeats the watch cycle until ctx is cancelled. Cycle errors are logged.
func (s *Service) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	for {
		if err := s.RunCycle(ctx); err != nil {
			log.Error().Err(err).Msg("watch cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

type CycleResult struct {
	SnapshotID     int
	OfferPath      string
	RunID          string
	NotInCanonical int
	NotInOffer     int
	ExportPath     string
}

func (s *Service) RunCycle(ctx context.Context) error {
	_, err := s.Cycle(ctx)
	return err
}

// Cycle fetches the remote catalog, compares it with the watched offer file
// and, when enabled, exports a sheet highlighting subjects missing from the offer.
func (s *Service) Cycle(ctx context.Context) (CycleResult, error) {
	log := logging.FromContext(ctx)

	snap, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("fetch: %w", err)
	}
	result := CycleResult{SnapshotID: snap.ID}

	offerPath := strings.TrimSpace(s.cfg.WatchOfferPath)
	if s.inbox != nil {
		mail, err := s.inbox.Fetch(ctx, s.cfg.MailLabel, s.cfg.MailFetchMax)
		if err != nil {
			return result, fmt.Errorf("inbox: %w", err)
		}
		if latest := mail.Latest(); latest != "" {
			offerPath = latest
		}
	}
	if offerPath == "" {
		log.Info().Int("snapshot", snap.ID).Msg("watch cycle done, no offer configured")
		return result, nil
	}

	cmp, err := s.reconciler.Compare(offerPath)
	if err != nil {
		return result, fmt.Errorf("compare: %w", err)
	}
	result.OfferPath = offerPath
	result.RunID = cmp.RunID
	result.NotInCanonical = len(cmp.Result.NotInCanonical)
	result.NotInOffer = len(cmp.Result.NotInCSV)

	if s.cfg.WatchAutoExport {
		filename := fmt.Sprintf("%s_%s.xlsx", s.now().Format("20060102_150405"), shortRunID(cmp.RunID))
		exported, err := s.reconciler.Export(filepath.Join(s.cfg.OutputDir, "watch", filename), cmp.RunID)
		if err != nil {
			return result, fmt.Errorf("export: %w", err)
		}
		result.ExportPath = exported.Path
	}

	log.Info().
		Int("snapshot", result.SnapshotID).
		Str("run", result.RunID).
		Str("offer", result.OfferPath).
		Int("notInCanonical", result.NotInCanonical).
		Int("notInOffer", result.NotInOffer).
		Str("export", result.ExportPath).
		Msg("watch cycle done")
	return result, nil
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
