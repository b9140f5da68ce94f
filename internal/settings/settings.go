// Package settings holds the remote catalog location and credential. The
// service is built once at startup; changes reach disk only through Update or Save.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

var ErrIncomplete = errors.New("github settings incomplete")

const (
	keyToken  = "token"
	keyOwner  = "owner"
	keyRepo   = "repo"
	keyPath   = "path"
	keyBranch = "branch"
)

type Settings struct {
	Token  string `json:"token"`
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Path   string `json:"path"`
	Branch string `json:"branch"`
}

func Defaults() Settings {
	return Settings{
		Repo:   "gestor-assignatures",
		Path:   "src/fitxers/AssignaturesMET.json",
		Branch: "main",
	}
}

// Validate reports which fields are missing for a remote read or write.
func (s Settings) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{keyToken, s.Token}, {keyOwner, s.Owner}, {keyRepo, s.Repo}, {keyPath, s.Path}, {keyBranch, s.Branch},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

type Service struct {
	mu       sync.RWMutex
	path     string
	v        *viper.Viper
	current  Settings
	envToken string
}

// NewService binds the settings file at path. envToken, when non-empty,
// overrides the stored token in Get without being persisted.
func NewService(path, envToken string) *Service {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	return &Service{path: path, v: v, current: Defaults(), envToken: envToken}
}

// Load reads the file, keeping defaults for absent keys. A missing file is not an error.
func (s *Service) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := Defaults()
	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			s.current = loaded
			return nil
		}
		return fmt.Errorf("read settings %s: %w", s.path, err)
	}

	for key, dst := range map[string]*string{
		keyToken: &loaded.Token, keyOwner: &loaded.Owner, keyRepo: &loaded.Repo, keyPath: &loaded.Path, keyBranch: &loaded.Branch,
	} {
		if s.v.IsSet(key) {
			*dst = s.v.GetString(key)
		}
	}
	s.current = loaded
	return nil
}

func (s *Service) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Service) saveLocked() error {
	s.v.Set(keyToken, s.current.Token)
	s.v.Set(keyOwner, s.current.Owner)
	s.v.Set(keyRepo, s.current.Repo)
	s.v.Set(keyPath, s.current.Path)
	s.v.Set(keyBranch, s.current.Branch)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return os.Chmod(s.path, 0o600)
}

func (s *Service) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.current
	if s.envToken != "" {
		out.Token = s.envToken
	}
	return out
}

// Update applies fn to the stored settings and persists the result. On a
// write failure the previous settings are restored.
func (s *Service) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.current
	next := s.current
	fn(&next)
	s.current = next
	if err := s.saveLocked(); err != nil {
		s.current = previous
		return err
	}
	return nil
}
