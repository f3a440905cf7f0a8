package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"finsight/internal/agent"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Record 是一次对话会话的持久化形式。Messages 为完整历史（含工具消息）。
type Record struct {
	ID       string          `json:"id"`
	Title    string          `json:"title,omitempty"`
	Messages []agent.Message `json:"messages"`
	Updated  time.Time       `json:"updated"`
}

// LastPrompt 返回最后一条用户消息，用作导出文件名等标签。
func (r Record) LastPrompt() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == agent.RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Store 以 JSON 文件保存会话，每个会话一个文件。
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fsys afero.Fs, dir string) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Store{fs: fsys, dir: dir}
}

// NewDefault 使用 ~/.finsight/sessions。
func NewDefault() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStore(afero.NewOsFs(), filepath.Join(home, ".finsight", "sessions")), nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save 写入会话，id 为空时生成新 id。返回实际使用的 id。
func (s *Store) Save(id string, messages []agent.Message) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	rec := Record{ID: id, Title: title(messages), Messages: messages, Updated: time.Now()}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(s.fs, s.path(id), data, 0o644); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Load(id string) (Record, error) {
	var rec Record
	id = strings.TrimSpace(id)
	if id == "" {
		return rec, errors.New("session id is empty")
	}
	data, err := afero.ReadFile(s.fs, s.path(id))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("session %s: %w", id, err)
	}
	return rec, nil
}

// Last 返回最近更新的会话。
func (s *Store) Last() (Record, error) {
	records, err := s.List()
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, fmt.Errorf("no sessions found")
	}
	return records[0], nil
}

func (s *Store) ListIDs() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		ids = append(ids, trimExt(e.Name()))
	}
	return ids, nil
}

// List 按更新时间倒序返回全部可解析的会话。
func (s *Store) List() ([]Record, error) {
	ids, err := s.ListIDs()
	if err != nil {
		return nil, err
	}
	var records []Record
	for _, id := range ids {
		rec, err := s.Load(id)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Updated.After(records[j].Updated)
	})
	return records, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func title(messages []agent.Message) string {
	for _, msg := range messages {
		if msg.Role == agent.RoleUser {
			t := strings.Join(strings.Fields(msg.Content), " ")
			if r := []rune(t); len(r) > 60 {
				t = string(r[:60]) + "…"
			}
			return t
		}
	}
	return ""
}
