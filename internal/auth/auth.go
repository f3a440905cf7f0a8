package auth

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Filename 是凭据文件名，位于 ~/.finsight 下。
const Filename = "auth.json"

type Credentials struct {
	APIKey       string    `json:"api_key"`
	LegacyAPIKey string    `json:"OPENAI_API_KEY,omitempty"`
	Updated      time.Time `json:"updated"`
}

// Store 读写 finsight login 保存的 API key；配置与环境变量都没有 token 时使用。
type Store struct {
	fs   afero.Fs
	path string
}

func NewStore(fsys afero.Fs, dir string) *Store {
	return &Store{fs: fsys, path: filepath.Join(dir, Filename)}
}

func (s *Store) Path() string { return s.path }

// SaveAPIKey persists an API key for later use by the CLI.
func (s *Store) SaveAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty API key")
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(Credentials{APIKey: key, Updated: time.Now().UTC()}, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.path, data, 0o600)
}

// LoadAPIKey loads the stored API key, returning an empty string when none is present.
func (s *Store) LoadAPIKey() (string, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", err
	}
	key := strings.TrimSpace(creds.APIKey)
	if key == "" {
		key = strings.TrimSpace(creds.LegacyAPIKey)
	}
	return key, nil
}

// Clear removes any stored credentials.
func (s *Store) Clear() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
