package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// MaxEntries 是载入时保留的最近问题条数。
const MaxEntries = 500

// Entry 是问题历史中的一行；Session 记录提问时所在的会话，新会话尚未保存时为空。
type Entry struct {
	Text    string    `json:"text"`
	Session string    `json:"session,omitempty"`
	TS      time.Time `json:"ts"`
}

// Store 以 JSONL 追加保存用户问过的问题，供 TUI 上下键回溯。
type Store struct {
	fs   afero.Fs
	path string
	now  func() time.Time
}

func NewStore(fsys afero.Fs, path string) *Store {
	return &Store{fs: fsys, path: path, now: time.Now}
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".finsight", "history.jsonl"), nil
}

func NewDefault() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return NewStore(afero.NewOsFs(), path), nil
}

func (s *Store) check() error {
	if s == nil || s.fs == nil {
		return errors.New("history store is nil")
	}
	if strings.TrimSpace(s.path) == "" {
		return errors.New("history store path is empty")
	}
	return nil
}

// Append 追加一个问题；空白问题忽略。
func (s *Store) Append(text, sessionID string) error {
	if err := s.check(); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := s.fs.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(Entry{Text: text, Session: strings.TrimSpace(sessionID), TS: s.now().UTC()})
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Load 返回最近 MaxEntries 条记录，跳过损坏行与连续重复的问题。
func (s *Store) Load() ([]Entry, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	f, err := s.fs.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out []Entry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		e.Text = strings.TrimSpace(e.Text)
		if e.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Text == e.Text {
			out[n-1] = e
			continue
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(out) > MaxEntries {
		out = out[len(out)-MaxEntries:]
	}
	return out, nil
}

// LoadTexts 只返回问题文本，顺序从旧到新。
func (s *Store) LoadTexts() ([]string, error) {
	entries, err := s.Load()
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	return texts, nil
}
