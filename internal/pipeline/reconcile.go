package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/config"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/logging"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/storage"
)

var ErrNoSnapshot = errors.New("no canonical snapshot stored; run catalog fetch or catalog import first")

const (
	RunCompare = "compare"
	RunMerge   = "merge"

	SourceMerge = "merge"
)

// ReconcileService runs the comparator, the merge engine and the exporter
// against the latest stored snapshot and records each run.
type ReconcileService struct {
	db  *storage.DB
	cfg config.Config
}

func NewReconcileService(db *storage.DB, cfg config.Config) *ReconcileService {
	return &ReconcileService{db: db, cfg: cfg}
}

type CompareOutcome struct {
	RunID    string
	Snapshot internal.Snapshot
	Result   internal.ComparisonResult
}

type MergeOutcome struct {
	RunID    string
	Previous internal.Snapshot
	Snapshot internal.Snapshot
	Stats    internal.MergeStats
}

type ExportOutcome struct {
	Path        string
	Rows        int
	Highlighted int
}

func (s *ReconcileService) Compare(offerPath string) (CompareOutcome, error) {
	snap, subjects, err := s.current()
	if err != nil {
		return CompareOutcome{}, err
	}
	offer, err := LoadOfferFile(offerPath)
	if err != nil {
		return CompareOutcome{}, fmt.Errorf("read offer %s: %w", offerPath, err)
	}

	result, err := offer.Compare(subjects)
	if err != nil {
		return CompareOutcome{}, err
	}

	run := internal.ReconcileRun{
		RunID:               uuid.NewString(),
		SnapshotID:          snap.ID,
		Kind:                RunCompare,
		OfferPath:           offerPath,
		MatchedColumn:       result.MatchedColumn,
		NotInCanonicalCount: len(result.NotInCanonical),
		NotInCSVCount:       len(result.NotInCSV),
		MissingCodes:        MissingCodes(result),
	}
	if err := s.db.InsertRun(run); err != nil {
		return CompareOutcome{}, err
	}

	logging.Default().Info().
		Str("run", run.RunID).
		Str("offer", offer.Name).
		Str("column", result.MatchedColumn).
		Int("notInCanonical", run.NotInCanonicalCount).
		Int("notInOffer", run.NotInCSVCount).
		Msg("compare done")

	return CompareOutcome{RunID: run.RunID, Snapshot: snap, Result: result}, nil
}

// Merge fills the latest snapshot from the offer rows and stores the result
// as a new snapshot. The previous snapshot is left as it was.
func (s *ReconcileService) Merge(offerPath, codeField string) (MergeOutcome, error) {
	if codeField == "" {
		codeField = s.cfg.OfferCodeField
	}
	if codeField == "" {
		codeField = DefaultCodeField
	}

	prev, subjects, err := s.current()
	if err != nil {
		return MergeOutcome{}, err
	}
	offer, err := LoadOfferFile(offerPath)
	if err != nil {
		return MergeOutcome{}, fmt.Errorf("read offer %s: %w", offerPath, err)
	}

	merged, stats := MergeCSVIntoWithStats(subjects, offer.Rows(), codeField)

	next, err := s.db.InsertSnapshot(internal.Snapshot{
		Source:     SourceMerge,
		Revision:   prev.Revision,
		Path:       prev.Path,
		Shape:      prev.Shape,
		GroupCount: prev.GroupCount,
	}, merged)
	if err != nil {
		return MergeOutcome{}, err
	}

	run := internal.ReconcileRun{
		RunID:         uuid.NewString(),
		SnapshotID:    next.ID,
		Kind:          RunMerge,
		OfferPath:     offerPath,
		MatchedColumn: codeField,
	}
	if err := s.db.InsertRun(run); err != nil {
		return MergeOutcome{}, err
	}

	logging.Default().Info().
		Str("run", run.RunID).
		Int("snapshot", next.ID).
		Int("matched", stats.Matched).
		Int("filled", stats.FieldsFilled).
		Msg("merge done")

	return MergeOutcome{RunID: run.RunID, Previous: prev, Snapshot: next, Stats: stats}, nil
}

// Export writes the latest snapshot as a spreadsheet. With a compare run id,
// subjects that run found missing from the offer are highlighted.
func (s *ReconcileService) Export(outputPath, highlightRunID string) (ExportOutcome, error) {
	_, subjects, err := s.current()
	if err != nil {
		return ExportOutcome{}, err
	}

	highlight := map[string]bool{}
	if highlightRunID != "" {
		run, err := s.db.GetRun(highlightRunID)
		if err != nil {
			return ExportOutcome{}, err
		}
		if run == nil {
			return ExportOutcome{}, fmt.Errorf("run not found: %s", highlightRunID)
		}
		for _, code := range run.MissingCodes {
			highlight[code] = true
		}
	}

	if outputPath == "" {
		outputPath = filepath.Join(s.cfg.OutputDir, fmt.Sprintf("assignatures_%s.xlsx", time.Now().Format("20060102_150405")))
	}

	table := Project(subjects, highlight)
	if err := WriteXLSX(table, s.cfg.ExportSheetName, outputPath); err != nil {
		return ExportOutcome{}, err
	}
	return ExportOutcome{Path: outputPath, Rows: len(table.Rows), Highlighted: len(table.Highlight)}, nil
}

func (s *ReconcileService) current() (internal.Snapshot, []internal.Subject, error) {
	snap, err := s.db.LatestSnapshot()
	if err != nil {
		return internal.Snapshot{}, nil, err
	}
	if snap == nil {
		return internal.Snapshot{}, nil, ErrNoSnapshot
	}
	subjects, err := s.db.ListSubjects(snap.ID)
	if err != nil {
		return internal.Snapshot{}, nil, err
	}
	return *snap, subjects, nil
}
