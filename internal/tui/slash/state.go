package slash

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// ActionKind 描述按键触发后的处理类型。
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionClose
	ActionInsert
	ActionSubmitCommand
	ActionError
)

// Action 汇总 Slash 处理结果。
type Action struct {
	Kind     ActionKind
	Command  Command
	Args     string
	NewValue string
	Message  string
}

type match struct {
	item       Item
	highlights []int
	score      int
}

// State 维护 slash 弹窗的匹配与选择状态。
type State struct {
	items    []Item
	matches  []match
	selected int
	open     bool
	args     string
	maxLines int
}

func NewState(maxLines int) *State {
	if maxLines <= 0 {
		maxLines = 8
	}
	return &State{items: Builtin(), maxLines: maxLines}
}

func (s *State) Open() bool {
	return s != nil && s.open
}

// SyncInput 根据输入框内容同步弹窗：仅在单行且首个 token 以 / 开头、尚未输入参数时展开。
func (s *State) SyncInput(value string) {
	if s == nil {
		return
	}
	if strings.Contains(value, "\n") || !strings.HasPrefix(value, "/") {
		s.close()
		return
	}
	token, args, hasArgs := strings.Cut(strings.TrimPrefix(value, "/"), " ")
	s.args = strings.TrimSpace(args)
	if hasArgs {
		s.close()
		return
	}
	s.open = true
	s.matches = filterMatches(s.items, token)
	if s.selected >= len(s.matches) {
		s.selected = 0
	}
}

func (s *State) close() {
	s.open = false
	s.matches = nil
	s.selected = 0
}

// Selected 返回当前高亮的命令。
func (s *State) Selected() (Item, bool) {
	if s == nil || !s.open || len(s.matches) == 0 {
		return Item{}, false
	}
	return s.matches[s.selected].item, true
}

// HandleKey 处理弹窗展开时的按键；返回 false 表示按键应交给输入框。
func (s *State) HandleKey(key string) (Action, bool) {
	if s == nil || !s.open {
		return Action{}, false
	}
	switch key {
	case "up", "ctrl+p":
		if len(s.matches) == 0 {
			return Action{Kind: ActionClose}, true
		}
		s.selected = (s.selected - 1 + len(s.matches)) % len(s.matches)
		return Action{Kind: ActionNone}, true
	case "down", "ctrl+n":
		if len(s.matches) == 0 {
			return Action{Kind: ActionClose}, true
		}
		s.selected = (s.selected + 1) % len(s.matches)
		return Action{Kind: ActionNone}, true
	case "esc":
		s.close()
		return Action{Kind: ActionClose}, true
	case "tab":
		item, ok := s.Selected()
		if !ok {
			return Action{Kind: ActionError, Message: "unknown command, type / to list commands"}, true
		}
		return Action{Kind: ActionInsert, Command: item.Command, NewValue: "/" + item.Token() + " "}, true
	case "enter":
		item, ok := s.Selected()
		if !ok {
			return Action{Kind: ActionError, Message: "unknown command, type / to list commands"}, true
		}
		s.close()
		return Action{Kind: ActionSubmitCommand, Command: item.Command, Args: s.args}, true
	}
	return Action{}, false
}

// ResolveSubmit 按 Enter 行为解析整行输入，不依赖弹窗是否展开。
func (s *State) ResolveSubmit(value string) Action {
	cmd, args, ok := Parse(value)
	if !ok || cmd == "" {
		return Action{Kind: ActionNone}
	}
	for _, item := range s.items {
		if item.Command == cmd {
			return Action{Kind: ActionSubmitCommand, Command: cmd, Args: args}
		}
	}
	return Action{Kind: ActionError, Message: "unknown command /" + string(cmd) + ", type / to list commands"}
}

func filterMatches(items []Item, query string) []match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]match, 0, len(items))
		for _, item := range items {
			out = append(out, match{item: item})
		}
		return out
	}
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.Token()
	}
	results := fuzzy.Find(query, keys)
	out := make([]match, 0, len(results))
	for _, res := range results {
		out = append(out, match{item: items[res.Index], highlights: res.MatchedIndexes, score: res.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score == out[j].score {
			return out[i].item.Token() < out[j].item.Token()
		}
		return out[i].score > out[j].score
	})
	return out
}
