package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  source TEXT NOT NULL,
  revision TEXT,
  path TEXT,
  shape TEXT NOT NULL,
  groupCount INTEGER NOT NULL,
  subjectCount INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS subjects (
  snapshotId INTEGER NOT NULL,
  position INTEGER NOT NULL,
  code TEXT NOT NULL,
  acronym TEXT NOT NULL,
  name TEXT,
  nameSpanish TEXT,
  nameEnglish TEXT,
  dept TEXT,
  centre TEXT,
  credits REAL,
  vigent TEXT,
  blockNameSummary TEXT,
  programSummary TEXT,
  blockId INTEGER,
  visibility TEXT,
  groupsJson TEXT NOT NULL,
  extraJson TEXT NOT NULL,
  PRIMARY KEY(snapshotId, position),
  FOREIGN KEY(snapshotId) REFERENCES snapshots(id)
);
CREATE INDEX IF NOT EXISTS idx_subjects_code ON subjects(code);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL UNIQUE,
  snapshotId INTEGER NOT NULL,
  kind TEXT NOT NULL,
  offerPath TEXT NOT NULL,
  matchedColumn TEXT,
  notInCanonical INTEGER NOT NULL,
  notInCsv INTEGER NOT NULL,
  missingCodesJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(snapshotId) REFERENCES snapshots(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// InsertSnapshot stores a whole canonical set. Snapshots are never updated;
// a newer one replaces the older as "latest".
func (d *DB) InsertSnapshot(snap internal.Snapshot, subjects []internal.Subject) (internal.Snapshot, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return internal.Snapshot{}, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
INSERT INTO snapshots (source, revision, path, shape, groupCount, subjectCount)
VALUES (?, ?, ?, ?, ?, ?)
`, snap.Source, snap.Revision, snap.Path, string(snap.Shape), snap.GroupCount, len(subjects))
	if err != nil {
		return internal.Snapshot{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return internal.Snapshot{}, err
	}

	stmt, err := tx.Prepare(`
INSERT INTO subjects (
  snapshotId, position, code, acronym, name, nameSpanish, nameEnglish,
  dept, centre, credits, vigent, blockNameSummary, programSummary,
  blockId, visibility, groupsJson, extraJson
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return internal.Snapshot{}, err
	}
	defer stmt.Close()

	for i, s := range subjects {
		groups := s.Groups
		if groups == nil {
			groups = []internal.Group{}
		}
		groupsJSON, err := json.Marshal(groups)
		if err != nil {
			return internal.Snapshot{}, err
		}
		extra := s.Extra
		if extra == nil {
			extra = map[string]string{}
		}
		extraJSON, err := json.Marshal(extra)
		if err != nil {
			return internal.Snapshot{}, err
		}
		if _, err := stmt.Exec(
			id, i, s.Code, s.Acronym, s.Name, s.NameSpanish, s.NameEnglish,
			s.Department, s.Centre, s.Credits, s.Validity, s.BlockNameSummary, s.ProgramSummary,
			s.BlockID, s.Visibility, string(groupsJSON), string(extraJSON),
		); err != nil {
			return internal.Snapshot{}, fmt.Errorf("insert subject %s: %w", s.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return internal.Snapshot{}, err
	}

	stored, err := d.GetSnapshot(int(id))
	if err != nil {
		return internal.Snapshot{}, err
	}
	if stored == nil {
		return internal.Snapshot{}, errors.New("failed to insert snapshot")
	}
	return *stored, nil
}

func (d *DB) GetSnapshot(id int) (*internal.Snapshot, error) {
	return d.scanSnapshot(d.conn.QueryRow(`
SELECT id, source, revision, path, shape, groupCount, subjectCount, createdAt
FROM snapshots WHERE id = ?
`, id))
}

func (d *DB) LatestSnapshot() (*internal.Snapshot, error) {
	return d.scanSnapshot(d.conn.QueryRow(`
SELECT id, source, revision, path, shape, groupCount, subjectCount, createdAt
FROM snapshots ORDER BY id DESC LIMIT 1
`))
}

func (d *DB) scanSnapshot(row *sql.Row) (*internal.Snapshot, error) {
	var snap internal.Snapshot
	var revision, path sql.NullString
	var shape string
	err := row.Scan(&snap.ID, &snap.Source, &revision, &path, &shape, &snap.GroupCount, &snap.SubjectCount, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Revision = revision.String
	snap.Path = path.String
	snap.Shape = internal.Shape(shape)
	return &snap, nil
}

func (d *DB) ListSubjects(snapshotID int) ([]internal.Subject, error) {
	rows, err := d.conn.Query(`
SELECT code, acronym, name, nameSpanish, nameEnglish, dept, centre, credits, vigent,
       blockNameSummary, programSummary, blockId, visibility, groupsJson, extraJson
FROM subjects WHERE snapshotId = ? ORDER BY position ASC
`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.Subject{}
	for rows.Next() {
		var s internal.Subject
		var name, nameSpanish, nameEnglish, dept, centre, vigent, blockNames, programs, visibility sql.NullString
		var credits sql.NullFloat64
		var blockID sql.NullInt64
		var groupsJSON, extraJSON string
		if err := rows.Scan(
			&s.Code, &s.Acronym, &name, &nameSpanish, &nameEnglish, &dept, &centre, &credits, &vigent,
			&blockNames, &programs, &blockID, &visibility, &groupsJSON, &extraJSON,
		); err != nil {
			return nil, err
		}
		s.Name = name.String
		s.NameSpanish = nameSpanish.String
		s.NameEnglish = nameEnglish.String
		s.Department = dept.String
		s.Centre = centre.String
		s.Validity = vigent.String
		s.BlockNameSummary = blockNames.String
		s.ProgramSummary = programs.String
		s.Visibility = visibility.String
		if credits.Valid {
			c := credits.Float64
			s.Credits = &c
		}
		if blockID.Valid {
			id := int(blockID.Int64)
			s.BlockID = &id
		}
		s.Groups = []internal.Group{}
		if err := json.Unmarshal([]byte(groupsJSON), &s.Groups); err != nil {
			return nil, fmt.Errorf("decode groups of subject %s: %w", s.Code, err)
		}
		if err := json.Unmarshal([]byte(extraJSON), &s.Extra); err != nil {
			return nil, fmt.Errorf("decode extra fields of subject %s: %w", s.Code, err)
		}
		if len(s.Extra) == 0 {
			s.Extra = nil
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

func (d *DB) InsertRun(run internal.ReconcileRun) error {
	missing := run.MissingCodes
	if missing == nil {
		missing = []string{}
	}
	missingJSON, err := json.Marshal(missing)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`
INSERT INTO runs (runId, snapshotId, kind, offerPath, matchedColumn, notInCanonical, notInCsv, missingCodesJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, run.RunID, run.SnapshotID, run.Kind, run.OfferPath, run.MatchedColumn, run.NotInCanonicalCount, run.NotInCSVCount, string(missingJSON))
	return err
}

func (d *DB) GetRun(runID string) (*internal.ReconcileRun, error) {
	rows, err := d.queryRuns(`WHERE runId = ?`, runID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (d *DB) ListRuns(limit int) ([]internal.ReconcileRun, error) {
	return d.queryRuns(`ORDER BY id DESC LIMIT ?`, limit)
}

func (d *DB) queryRuns(tail string, args ...any) ([]internal.ReconcileRun, error) {
	rows, err := d.conn.Query(`
SELECT id, runId, snapshotId, kind, offerPath, matchedColumn, notInCanonical, notInCsv, missingCodesJson, createdAt
FROM runs `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ReconcileRun
	for rows.Next() {
		var run internal.ReconcileRun
		var column sql.NullString
		var missingJSON string
		if err := rows.Scan(&run.ID, &run.RunID, &run.SnapshotID, &run.Kind, &run.OfferPath, &column,
			&run.NotInCanonicalCount, &run.NotInCSVCount, &missingJSON, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.MatchedColumn = column.String
		if err := json.Unmarshal([]byte(missingJSON), &run.MissingCodes); err != nil {
			return nil, fmt.Errorf("decode missing codes of run %s: %w", run.RunID, err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
