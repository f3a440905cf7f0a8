package tui

import (
	"strings"

	"finsight/internal/history"
)

// promptHistory 负责输入框历史浏览状态（上下箭头），可选地持久化到 history.Store。
// cursor == len(entries) 表示当前在“最新输入”（非浏览历史）位置。
type promptHistory struct {
	entries []string
	cursor  int
	draft   string
	store   *history.Store
}

func newPromptHistory(store *history.Store) *promptHistory {
	h := &promptHistory{store: store}
	if store != nil {
		if texts, err := store.LoadTexts(); err == nil {
			h.entries = texts
		} else {
			log.Warnf("load prompt history: %v", err)
		}
	}
	h.cursor = len(h.entries)
	return h
}

// Add 记录一次提问；sessionID 为提问时所在的会话，未保存的新会话为空。
func (h *promptHistory) Add(text, sessionID string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if n := len(h.entries); n == 0 || h.entries[n-1] != text {
		h.entries = append(h.entries, text)
		if h.store != nil {
			if err := h.store.Append(text, sessionID); err != nil {
				log.Warnf("append prompt history: %v", err)
			}
		}
	}
	h.cursor = len(h.entries)
	h.draft = ""
}

// Focus 把某个会话里问过的问题移到最近位置，恢复会话后上键先回溯这些问题。
func (h *promptHistory) Focus(sessionID string) {
	if h.store == nil || strings.TrimSpace(sessionID) == "" {
		return
	}
	entries, err := h.store.Load()
	if err != nil {
		log.Warnf("load prompt history: %v", err)
		return
	}
	var others, own []string
	for _, e := range entries {
		if e.Session == sessionID {
			own = append(own, e.Text)
		} else {
			others = append(others, e.Text)
		}
	}
	if len(own) == 0 {
		return
	}
	h.entries = append(others, own...)
	h.cursor = len(h.entries)
	h.draft = ""
}

func (h *promptHistory) Browsing() bool {
	return h.cursor < len(h.entries)
}

func (h *promptHistory) Prev(current string) (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor == len(h.entries) {
		h.draft = current
	}
	if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

func (h *promptHistory) Next() (string, bool) {
	if len(h.entries) == 0 || h.cursor == len(h.entries) {
		return "", false
	}
	if h.cursor < len(h.entries)-1 {
		h.cursor++
		return h.entries[h.cursor], true
	}
	h.cursor = len(h.entries)
	return h.draft, true
}
