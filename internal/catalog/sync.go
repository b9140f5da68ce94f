package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/config"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/logging"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/pipeline"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/settings"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/storage"
)

const (
	SourceGitHub = "github"
	SourceFile   = "file"

	metaRevision  = "catalog.revision"
	metaLastFetch = "catalog.last_fetch"
	metaLastPush  = "catalog.last_push"

	defaultCommitMessage = "Actualitza el catàleg d'assignatures"
)

type SyncService struct {
	db       *storage.DB
	client   *Client
	settings *settings.Service
	cfg      config.Config
}

func NewSyncService(db *storage.DB, st *settings.Service, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), settings: st, cfg: cfg}
}

// Fetch reads the remote catalog, normalizes it and stores it as a new snapshot.
func (s *SyncService) Fetch(ctx context.Context) (internal.Snapshot, error) {
	st := s.settings.Get()
	if err := st.Validate(); err != nil {
		return internal.Snapshot{}, err
	}

	file, err := s.client.Read(ctx, LocationFromSettings(st))
	if err != nil {
		return internal.Snapshot{}, err
	}

	snap, err := s.store([]byte(file.Content), SourceGitHub, file.Revision, st.Path)
	if err != nil {
		return internal.Snapshot{}, err
	}
	if err := s.db.SetMetadata(metaRevision, file.Revision); err != nil {
		return internal.Snapshot{}, err
	}
	s.touch(metaLastFetch)

	logging.Default().Info().
		Int("snapshot", snap.ID).
		Str("revision", snap.Revision).
		Str("shape", string(snap.Shape)).
		Int("subjects", snap.SubjectCount).
		Msg("catalog fetched")
	return snap, nil
}

// ImportFile stores a local catalog document as a new snapshot. The stored
// remote revision is kept so a later push still targets it.
func (s *SyncService) ImportFile(path string) (internal.Snapshot, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.Snapshot{}, err
	}

	revision := ""
	if rev, err := s.db.GetMetadata(metaRevision); err == nil && rev != nil {
		revision = *rev
	}
	return s.store(blob, SourceFile, revision, path)
}

// Push writes the latest snapshot back to the remote file and returns the new revision.
func (s *SyncService) Push(ctx context.Context, message string) (string, error) {
	st := s.settings.Get()
	if err := st.Validate(); err != nil {
		return "", err
	}

	snap, err := s.db.LatestSnapshot()
	if err != nil {
		return "", err
	}
	if snap == nil {
		return "", pipeline.ErrNoSnapshot
	}
	subjects, err := s.db.ListSubjects(snap.ID)
	if err != nil {
		return "", err
	}

	shape := snap.Shape
	if shape != internal.ShapeFlat {
		shape = internal.ShapeGrouped
	}
	content, err := pipeline.EncodeDocument(subjects, shape)
	if err != nil {
		return "", err
	}

	revision := snap.Revision
	if rev, err := s.db.GetMetadata(metaRevision); err == nil && rev != nil && *rev != "" {
		revision = *rev
	}
	if message == "" {
		message = defaultCommitMessage
	}

	next, err := s.client.Write(ctx, LocationFromSettings(st), string(content), message, revision)
	if err != nil {
		return "", err
	}
	if err := s.db.SetMetadata(metaRevision, next); err != nil {
		return "", err
	}
	s.touch(metaLastPush)

	logging.Default().Info().Int("snapshot", snap.ID).Str("revision", next).Msg("catalog pushed")
	return next, nil
}

func (s *SyncService) store(blob []byte, source, revision, path string) (internal.Snapshot, error) {
	res, err := pipeline.NormalizeJSON(blob)
	if err != nil {
		return internal.Snapshot{}, err
	}
	if res.Shape == internal.ShapeUnrecognized {
		return internal.Snapshot{}, fmt.Errorf("%s: unrecognized catalog format", path)
	}
	return s.db.InsertSnapshot(internal.Snapshot{
		Source:     source,
		Revision:   revision,
		Path:       path,
		Shape:      res.Shape,
		GroupCount: res.GroupCount,
	}, res.Subjects)
}

func (s *SyncService) touch(key string) {
	if err := s.db.SetMetadata(key, time.Now().UTC().Format(time.RFC3339)); err != nil {
		logging.Default().Warn().Err(err).Str("key", key).Msg("catalog: metadata not saved")
	}
}
