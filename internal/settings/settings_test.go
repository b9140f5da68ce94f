package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "settings.json"), "")
	require.NoError(t, svc.Load())
	assert.Equal(t, Defaults(), svc.Get())
}

func TestUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	svc := NewService(path, "")
	require.NoError(t, svc.Load())

	require.NoError(t, svc.Update(func(s *Settings) {
		s.Owner = "sambro-cindrela"
		s.Token = "secret"
	}))

	_, err := os.Stat(path)
	require.NoError(t, err)

	reloaded := NewService(path, "")
	require.NoError(t, reloaded.Load())
	got := reloaded.Get()
	assert.Equal(t, "sambro-cindrela", got.Owner)
	assert.Equal(t, "secret", got.Token)
	assert.Equal(t, "main", got.Branch)
	assert.Equal(t, "src/fitxers/AssignaturesMET.json", got.Path)
}

func TestLoadMergesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"owner":"upc","branch":"dev"}`), 0o600))

	svc := NewService(path, "")
	require.NoError(t, svc.Load())
	got := svc.Get()
	assert.Equal(t, "upc", got.Owner)
	assert.Equal(t, "dev", got.Branch)
	assert.Equal(t, "gestor-assignatures", got.Repo)
}

func TestEnvTokenOverridesWithoutPersisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	svc := NewService(path, "from-env")
	require.NoError(t, svc.Load())
	assert.Equal(t, "from-env", svc.Get().Token)

	require.NoError(t, svc.Save())
	reloaded := NewService(path, "")
	require.NoError(t, reloaded.Load())
	assert.Equal(t, "", reloaded.Get().Token)
}

func TestValidate(t *testing.T) {
	err := Defaults().Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Contains(t, err.Error(), "token")
	assert.Contains(t, err.Error(), "owner")

	full := Defaults()
	full.Token, full.Owner = "t", "o"
	assert.NoError(t, full.Validate())
}
