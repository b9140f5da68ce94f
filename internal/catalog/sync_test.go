package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/config"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/logging"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/pipeline"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/settings"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/storage"
)

const remoteCatalog = `[{"id":3,"nom":"Optatives","programa":948,"unitats_docents":[
  {"codi_upc_ud":"2301234","sigles_ud":"ABC","nom":"Antenes"},
  {"codi_upc_ud":"2305678","sigles_ud":"DEF","nom":"Radar"}
]}]`

func newSyncFixture(t *testing.T, fn roundTripFunc) (*SyncService, *storage.DB) {
	t.Helper()
	logging.NewTestLogger(t)

	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := settings.NewService(filepath.Join(dir, "settings.json"), "tok")
	require.NoError(t, st.Load())
	require.NoError(t, st.Update(func(s *settings.Settings) { s.Owner = "upc" }))

	cfg := config.Config{GitHubAPIBaseURL: "https://example.test", GitHubRateLimitRPS: 1000}
	svc := NewSyncService(db, st, cfg)
	svc.client.httpClient = &http.Client{Transport: fn}
	return svc, db
}

func TestSyncFetchAndPush(t *testing.T) {
	var pushed writeRequest
	svc, db := newSyncFixture(t, func(r *http.Request) (*http.Response, error) {
		if r.Method == http.MethodGet {
			return jsonResponse(http.StatusOK, map[string]any{
				"sha":      "sha-1",
				"content":  base64.StdEncoding.EncodeToString([]byte(remoteCatalog)),
				"encoding": "base64",
			}), nil
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&pushed))
		return jsonResponse(http.StatusOK, map[string]any{"content": map[string]any{"sha": "sha-2"}}), nil
	})

	snap, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sha-1", snap.Revision)
	assert.Equal(t, internal.ShapeGrouped, snap.Shape)
	assert.Equal(t, 2, snap.SubjectCount)

	rev, err := svc.Push(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "sha-2", rev)
	assert.Equal(t, "sha-1", pushed.SHA)
	assert.Equal(t, defaultCommitMessage, pushed.Message)

	content, err := base64.StdEncoding.DecodeString(pushed.Content)
	require.NoError(t, err)
	res, err := pipeline.NormalizeJSON(content)
	require.NoError(t, err)
	assert.Len(t, res.Subjects, 2)
	var blocks []map[string]any
	require.NoError(t, json.Unmarshal(content, &blocks))
	require.Len(t, blocks, 1)
	assert.Equal(t, 3.0, blocks[0]["id"])

	stored, err := db.GetMetadata(metaRevision)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "sha-2", *stored)

	_, err = svc.Push(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, "sha-2", pushed.SHA)
}

func TestSyncImportFile(t *testing.T) {
	svc, _ := newSyncFixture(t, func(r *http.Request) (*http.Response, error) {
		t.Fatal("unexpected request")
		return nil, nil
	})

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"codi":"2301234","sigles":"ABC"}]`), 0o644))

	snap, err := svc.ImportFile(path)
	require.NoError(t, err)
	assert.Equal(t, SourceFile, snap.Source)
	assert.Equal(t, internal.ShapeFlat, snap.Shape)
	assert.Equal(t, 1, snap.SubjectCount)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"foo":1}`), 0o644))
	_, err = svc.ImportFile(bad)
	assert.Error(t, err)
}

func TestSyncRequiresSettings(t *testing.T) {
	svc, _ := newSyncFixture(t, func(r *http.Request) (*http.Response, error) {
		t.Fatal("unexpected request")
		return nil, nil
	})
	require.NoError(t, svc.settings.Update(func(s *settings.Settings) { s.Owner = "" }))

	_, err := svc.Fetch(context.Background())
	assert.ErrorIs(t, err, settings.ErrIncomplete)
}
