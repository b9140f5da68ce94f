package listener

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/config"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/connectors"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/logging"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/pipeline"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/storage"
)

type fetchFunc func(ctx context.Context) (internal.Snapshot, error)

func (f fetchFunc) Fetch(ctx context.Context) (internal.Snapshot, error) { return f(ctx) }

func newWatchFixture(t *testing.T, offer string) (*storage.DB, config.Config) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{OutputDir: filepath.Join(dir, "out"), ExportSheetName: "Assignatures", WatchAutoExport: true, WatchIntervalSec: 1}
	if offer != "" {
		cfg.WatchOfferPath = filepath.Join(dir, "oferta.csv")
		require.NoError(t, os.WriteFile(cfg.WatchOfferPath, []byte(offer), 0o644))
	}
	return db, cfg
}

func storingFetcher(db *storage.DB) fetchFunc {
	return func(ctx context.Context) (internal.Snapshot, error) {
		return db.InsertSnapshot(internal.Snapshot{Source: "github", Revision: "sha", Shape: internal.ShapeFlat}, []internal.Subject{
			{Code: "2301234", Acronym: "ANT"},
			{Code: "2305678", Acronym: "RAD"},
		})
	}
}

func TestCycleComparesAndExports(t *testing.T) {
	logger := logging.NewTestLogger(t)
	db, cfg := newWatchFixture(t, "codi;nom\n2301234;Antenes\n2309999;Nova\n")

	svc := NewService(storingFetcher(db), pipeline.NewReconcileService(db, cfg), cfg)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	res, err := svc.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.NotInCanonical)
	assert.Equal(t, 1, res.NotInOffer)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "watch"), filepath.Dir(res.ExportPath))
	assert.Contains(t, filepath.Base(res.ExportPath), "20260301_093000_")
	_, err = os.Stat(res.ExportPath)
	assert.NoError(t, err)

	run, err := db.GetRun(res.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, []string{"2305678"}, run.MissingCodes)
	assert.True(t, logger.Contains("watch cycle done"))
}

func TestCycleWithoutOffer(t *testing.T) {
	logging.NewTestLogger(t)
	db, cfg := newWatchFixture(t, "")

	svc := NewService(storingFetcher(db), pipeline.NewReconcileService(db, cfg), cfg)
	res, err := svc.Cycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Empty(t, res.ExportPath)
}

func TestRunLogsCycleErrorsAndStops(t *testing.T) {
	logger := logging.NewTestLogger(t)
	db, cfg := newWatchFixture(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fetcher := fetchFunc(func(ctx context.Context) (internal.Snapshot, error) {
		calls++
		cancel()
		return internal.Snapshot{}, errors.New("boom")
	})

	svc := NewService(fetcher, pipeline.NewReconcileService(db, cfg), cfg)
	require.NoError(t, svc.Run(ctx))
	assert.Equal(t, 1, calls)
	assert.True(t, logger.Contains("watch cycle failed"))
	assert.True(t, logger.Contains("boom"))
}

type mailbox []connectors.Message

func (m mailbox) FetchInbox(_ context.Context, _ string, _ int) ([]connectors.Message, error) {
	return m, nil
}

func TestCycleUsesInboxOffer(t *testing.T) {
	logging.NewTestLogger(t)
	db, cfg := newWatchFixture(t, "codi\n2301234\n2305678\n")
	cfg.WatchAutoExport = false

	raw := strings.Join([]string{
		"From: secretaria@example.org",
		"Subject: Oferta",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="B"`,
		"",
		"--B",
		`Content-Type: text/csv; name="oferta.csv"`,
		`Content-Disposition: attachment; filename="oferta.csv"`,
		"",
		"codi;nom",
		"2301234;Antenes",
		"--B--",
		"",
	}, "\r\n")
	inbox := connectors.NewInbox(db, filepath.Join(t.TempDir(), "inbox"), mailbox{{Provider: "imap", MessageID: "<1@x>", Raw: []byte(raw)}})

	svc := NewService(storingFetcher(db), pipeline.NewReconcileService(db, cfg), cfg).WithInbox(inbox)
	res, err := svc.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ".eml", filepath.Ext(res.OfferPath))
	assert.Equal(t, 1, res.NotInOffer)
	assert.Empty(t, res.ExportPath)

	res, err = svc.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.WatchOfferPath, res.OfferPath)
	assert.Equal(t, 0, res.NotInOffer)
}

func TestNewMailConnectorRejectsUnknownProvider(t *testing.T) {
	_, err := NewMailConnector(context.Background(), config.Config{}, "pop3")
	assert.Error(t, err)

	_, err = NewMailConnector(context.Background(), config.Config{}, "imap")
	assert.Error(t, err)
}
