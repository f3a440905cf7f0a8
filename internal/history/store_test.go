package history

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	s := NewStore(fsys, "/home/u/.finsight/history.jsonl")
	s.now = func() time.Time { return time.Date(2024, time.June, 14, 9, 30, 0, 0, time.UTC) }
	return s, fsys
}

func TestStoreAppendAndLoadTexts(t *testing.T) {
	s, fsys := newTestStore(t)

	got, err := s.LoadTexts()
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, s.Append("   ", "s1"))
	require.NoError(t, s.Append("AAPL price", ""))
	require.NoError(t, s.Append("NVDA 1y return", "s1"))

	data, err := afero.ReadFile(fsys, "/home/u/.finsight/history.jsonl")
	require.NoError(t, err)
	require.Equal(t,
		`{"text":"AAPL price","ts":"2024-06-14T09:30:00Z"}`+"\n"+
			`{"text":"NVDA 1y return","session":"s1","ts":"2024-06-14T09:30:00Z"}`+"\n",
		string(data))

	// 损坏行跳过，连续重复只保留最后一条。
	require.NoError(t, afero.WriteFile(fsys, "/home/u/.finsight/history.jsonl", []byte(strings.Join([]string{
		`{"text":"one","ts":"2025-01-01T00:00:00Z"}`,
		`{not json}`,
		`{"text":"two","session":"a","ts":"2025-01-01T00:00:00Z"}`,
		`{"text":"two","session":"b","ts":"2025-01-01T00:00:01Z"}`,
		`{"text":"  ","ts":"2025-01-01T00:00:02Z"}`,
		"",
	}, "\n")), 0o644))

	entries, err := s.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "one", entries[0].Text)
	require.Equal(t, "b", entries[1].Session)

	texts, err := s.LoadTexts()
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, texts)
}

func TestStoreKeepsMostRecentEntries(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < MaxEntries+5; i++ {
		require.NoError(t, s.Append(fmt.Sprintf("q%d", i), ""))
	}
	texts, err := s.LoadTexts()
	require.NoError(t, err)
	require.Len(t, texts, MaxEntries)
	require.Equal(t, "q5", texts[0])
}

func TestStoreErrors(t *testing.T) {
	var s *Store
	require.Error(t, s.Append("hi", ""))

	s = NewStore(afero.NewMemMapFs(), "")
	require.Error(t, s.Append("hi", ""))
	_, err := s.LoadTexts()
	require.Error(t, err)
}
