package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finsight/internal/agent"
	"finsight/internal/events"
	"finsight/internal/history"
	"finsight/internal/report"
	"finsight/internal/session"
	"finsight/internal/tui/render"
	"finsight/internal/tui/slash"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
)

// Runner 是 TUI 需要的 agent 能力：给定完整历史运行一轮。
type Runner interface {
	Run(ctx context.Context, history []agent.Message) (agent.Result, error)
}

type Options struct {
	Runner          Runner
	Events          *events.Bus
	Sessions        *session.Store
	History         *history.Store
	Model           string
	MarketSource    string
	IndexInfo       string
	InitialMessages []agent.Message
	SessionID       string
	InitialPrompt   string
	ExportDir       string
	Fs              afero.Fs
	Clipboard       func(string) error
	Now             func() time.Time
}

type startPromptMsg struct {
	Text string
}

type agentDoneMsg struct {
	Result agent.Result
	Err    error
}

type busEventMsg struct {
	Event events.Event
}

const welcomeText = "Ask about a ticker, a sector, or your internal AI research. Type / for commands."

type Model struct {
	textarea   textarea.Model
	viewport   viewport.Model
	spin       spinner.Model
	slash      *slash.State
	prompts    *promptHistory
	status     *StatusIndicator
	runner     Runner
	sessions   *session.Store
	eventsSub  <-chan events.Event
	fs         afero.Fs
	copyText   func(string) error
	modelName  string
	market     string
	indexInfo  string
	exportDir  string
	sessionID  string
	initSend   string
	messages   []agent.Message
	notes      []string
	lastSource []string
	pending    bool
	cancel     context.CancelFunc
	quitting   bool
	width      int
	height     int
}

func New(opts Options) *Model {
	ti := textarea.New()
	ti.Placeholder = "Compare NVDA's 1y return with our internal AI roadmap…"
	ti.Prompt = "› "
	ti.CharLimit = 0
	ti.SetWidth(90)
	ti.SetHeight(1)
	ti.ShowLineNumbers = false
	ti.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	copyText := opts.Clipboard
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	m := &Model{
		textarea:  ti,
		viewport:  viewport.New(90, 12),
		spin:      spin,
		slash:     slash.NewState(8),
		prompts:   newPromptHistory(opts.History),
		status:    NewStatusIndicator(opts.Now),
		runner:    opts.Runner,
		sessions:  opts.Sessions,
		fs:        fsys,
		copyText:  copyText,
		modelName: opts.Model,
		market:    opts.MarketSource,
		indexInfo: opts.IndexInfo,
		exportDir: opts.ExportDir,
		sessionID: opts.SessionID,
		initSend:  strings.TrimSpace(opts.InitialPrompt),
		messages:  agent.CloneMessages(opts.InitialMessages),
		width:     90,
		height:    24,
	}
	if opts.Events != nil {
		m.eventsSub = opts.Events.Subscribe()
	}
	m.layout()
	return m
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, textarea.Blink}
	if cmd := m.listenEvents(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.initSend != "" {
		prompt := m.initSend
		cmds = append(cmds, func() tea.Msg { return startPromptMsg{Text: prompt} })
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case startPromptMsg:
		return m, m.submitPrompt(msg.Text)
	case busEventMsg:
		m.status.Observe(msg.Event)
		return m, m.listenEvents()
	case agentDoneMsg:
		m.finishRun(msg.Result, msg.Err)
		return m, nil
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.slash.SyncInput(m.textarea.Value())
	m.setComposerHeight()
	return m, tea.Batch(cmds...)
}

// handleKey 处理全局按键；返回 false 表示按键交给输入框。
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	key := msg.String()
	switch key {
	case "ctrl+c":
		if m.pending && m.cancel != nil {
			m.cancel()
			return nil, true
		}
		return m.quit(), true
	case "esc":
		if m.pending && m.cancel != nil && !m.slash.Open() {
			m.cancel()
			return nil, true
		}
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd, true
	}

	if m.slash.Open() {
		if action, ok := m.slash.HandleKey(key); ok {
			return m.applySlashAction(action), true
		}
	}

	switch key {
	case "enter":
		if msg.Alt {
			return nil, false
		}
		value := m.textarea.Value()
		if strings.TrimSpace(value) == "" {
			return nil, true
		}
		if action := m.slash.ResolveSubmit(value); action.Kind != slash.ActionNone {
			m.resetComposer()
			return m.applySlashAction(action), true
		}
		if m.pending {
			m.note("The agent is still researching; wait for the answer or press Esc to cancel.")
			return nil, true
		}
		m.resetComposer()
		return m.submitPrompt(value), true
	case "up":
		if m.textarea.Line() == 0 && (m.textarea.Value() == "" || m.prompts.Browsing()) {
			if text, ok := m.prompts.Prev(m.textarea.Value()); ok {
				m.textarea.SetValue(text)
			}
			return nil, true
		}
	case "down":
		if m.prompts.Browsing() {
			if text, ok := m.prompts.Next(); ok {
				m.textarea.SetValue(text)
			}
			return nil, true
		}
	}
	return nil, false
}

func (m *Model) applySlashAction(action slash.Action) tea.Cmd {
	switch action.Kind {
	case slash.ActionInsert:
		m.textarea.SetValue(action.NewValue)
		m.textarea.CursorEnd()
		m.slash.SyncInput(action.NewValue)
	case slash.ActionSubmitCommand:
		m.resetComposer()
		return m.handleCommand(action.Command, action.Args)
	case slash.ActionError:
		m.note(action.Message)
	}
	return nil
}

func (m *Model) handleCommand(cmd slash.Command, args string) tea.Cmd {
	switch cmd {
	case slash.CommandSources:
		m.note(strings.Join(render.Sources(m.lastSource, m.contentWidth()), "\n"))
	case slash.CommandClear:
		if m.pending {
			m.note("Cannot clear while the agent is running.")
			return nil
		}
		m.messages = nil
		m.notes = nil
		m.lastSource = nil
		m.sessionID = ""
		m.status.Stop()
		m.note("Conversation cleared.")
	case slash.CommandExport:
		m.export(args)
	case slash.CommandCopy:
		answer := lastAnswer(m.messages)
		if answer == "" {
			m.note("No answer to copy yet.")
			return nil
		}
		if err := m.copyText(answer); err != nil {
			m.note(fmt.Sprintf("Copy failed: %v", err))
			return nil
		}
		m.note("Copied the last answer to the clipboard.")
	case slash.CommandSessions:
		m.listSessions()
	case slash.CommandResume:
		if m.pending {
			m.note("Cannot resume while the agent is running.")
			return nil
		}
		m.resume(args)
	case slash.CommandStatus:
		m.note(m.statusText())
	case slash.CommandHelp:
		lines := []string{"Commands:"}
		for _, item := range slash.Builtin() {
			name := item.DisplayName()
			if item.Usage != "" {
				name += " " + item.Usage
			}
			lines = append(lines, fmt.Sprintf("  %-18s %s", name, item.Description))
		}
		lines = append(lines, "Esc cancels a running request • PgUp/PgDn scroll • Alt+Enter newline")
		m.note(strings.Join(lines, "\n"))
	case slash.CommandQuit, slash.CommandExit:
		return m.quit()
	}
	return nil
}

func (m *Model) submitPrompt(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" || m.runner == nil {
		return nil
	}
	m.prompts.Add(text, m.sessionID)
	m.notes = nil
	m.messages = append(m.messages, agent.Message{Role: agent.RoleUser, Content: text})
	m.pending = true
	m.status.Start()
	m.refreshTranscript()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	runner := m.runner
	hist := agent.CloneMessages(m.messages)
	return func() tea.Msg {
		res, err := runner.Run(ctx, hist)
		return agentDoneMsg{Result: res, Err: err}
	}
}

// finishRun 合并一轮结果。失败时撤回本轮的用户消息并放回输入框，历史保持不变。
func (m *Model) finishRun(res agent.Result, err error) {
	m.pending = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if err != nil {
		var prompt string
		if n := len(m.messages); n > 0 && m.messages[n-1].Role == agent.RoleUser {
			prompt = m.messages[n-1].Content
			m.messages = m.messages[:n-1]
		}
		if errors.Is(err, context.Canceled) {
			m.status.Stop()
			m.note("Request cancelled.")
		} else {
			m.status.Fail(agent.ErrorKind(err))
			m.note(fmt.Sprintf("Error (%s): %v", agent.ErrorKind(err), err))
			log.Warnf("agent run failed: %v", err)
		}
		if prompt != "" && strings.TrimSpace(m.textarea.Value()) == "" {
			m.textarea.SetValue(prompt)
			m.textarea.CursorEnd()
		}
		m.refreshTranscript()
		return
	}

	m.status.Stop()
	m.messages = append(m.messages, res.NewMessages...)
	m.lastSource = append([]string(nil), res.Sources...)
	m.refreshTranscript()
	m.save()
}

func (m *Model) save() {
	if m.sessions == nil || len(m.messages) == 0 {
		return
	}
	id, err := m.sessions.Save(m.sessionID, m.messages)
	if err != nil {
		log.Warnf("save session: %v", err)
		return
	}
	m.sessionID = id
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	if m.pending && m.cancel != nil {
		m.cancel()
	}
	if !m.pending {
		m.save()
	}
	return tea.Quit
}

func (m *Model) export(path string) {
	if len(agent.Conversation(m.messages)) == 0 {
		m.note("Nothing to export yet.")
		return
	}
	written, err := report.Write(m.fs, m.exportDir, strings.TrimSpace(path), m.messages, lastPrompt(m.messages))
	if err != nil {
		m.note(fmt.Sprintf("Export failed: %v", err))
		return
	}
	m.note("Report written to " + written)
}

func (m *Model) listSessions() {
	if m.sessions == nil {
		m.note("Session storage is disabled.")
		return
	}
	records, err := m.sessions.List()
	if err != nil {
		m.note(fmt.Sprintf("List sessions failed: %v", err))
		return
	}
	if len(records) == 0 {
		m.note("No saved sessions.")
		return
	}
	lines := []string{"Saved sessions (newest first):"}
	for _, rec := range records {
		marker := " "
		if rec.ID == m.sessionID {
			marker = "*"
		}
		lines = append(lines, fmt.Sprintf("%s %s  %s  %s", marker, rec.ID, rec.Updated.Format("2006-01-02 15:04"), rec.Title))
	}
	lines = append(lines, "Use /resume <id> to continue one.")
	m.note(strings.Join(lines, "\n"))
}

func (m *Model) resume(id string) {
	if m.sessions == nil {
		m.note("Session storage is disabled.")
		return
	}
	var (
		rec session.Record
		err error
	)
	if id = strings.TrimSpace(id); id == "" {
		rec, err = m.sessions.Last()
	} else {
		rec, err = m.sessions.Load(id)
	}
	if err != nil {
		m.note(fmt.Sprintf("Resume failed: %v", err))
		return
	}
	if err := agent.ValidateHistory(rec.Messages); err != nil {
		m.note(fmt.Sprintf("Session %s is not usable: %v", rec.ID, err))
		return
	}
	m.messages = agent.CloneMessages(rec.Messages)
	m.sessionID = rec.ID
	m.prompts.Focus(rec.ID)
	m.lastSource = nil
	m.notes = nil
	m.status.Stop()
	m.note(fmt.Sprintf("Resumed session %s (%d messages).", rec.ID, len(rec.Messages)))
}

func (m *Model) statusText() string {
	sessionID := m.sessionID
	if sessionID == "" {
		sessionID = "(unsaved)"
	}
	lines := []string{
		"Model:   " + m.modelName,
		"Market:  " + m.market,
		"Index:   " + m.indexInfo,
		"Session: " + sessionID,
		fmt.Sprintf("Turns:   %d", len(agent.Conversation(m.messages))),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) listenEvents() tea.Cmd {
	sub := m.eventsSub
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-sub
		if !ok {
			return nil
		}
		return busEventMsg{Event: evt}
	}
}

func (m *Model) note(text string) {
	m.notes = append(m.notes, text)
	m.refreshTranscript()
}

func (m *Model) resetComposer() {
	m.textarea.Reset()
	m.slash.SyncInput("")
	m.setComposerHeight()
}

func (m *Model) setComposerHeight() {
	lines := min(max(strings.Count(m.textarea.Value(), "\n")+1, 1), 6)
	if m.textarea.Height() != lines {
		m.textarea.SetHeight(lines)
	}
	m.layout()
}

func (m *Model) contentWidth() int {
	return max(m.width-2, 20)
}

// layout 按当前窗口与弹窗状态重新分配 transcript 高度。
func (m *Model) layout() {
	m.textarea.SetWidth(max(m.width-4, 10))
	reserved := lipgloss.Height(renderBanner(m.modelName, m.market, m.width)) +
		m.textarea.Height() + 2 + // composer border
		1 + 1 // status + hints
	if popup := m.slash.View(m.contentWidth()); popup != "" {
		reserved += lipgloss.Height(popup) + 2
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-reserved, 3)
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	lines := m.transcriptLines()
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *Model) transcriptLines() []string {
	width := m.contentWidth()
	lines := render.Messages(m.messages, width)
	if len(lines) == 0 && len(m.notes) == 0 {
		return render.Wrap(welcomeText, width)
	}
	for _, n := range m.notes {
		lines = append(lines, "")
		for _, line := range strings.Split(n, "\n") {
			lines = append(lines, noteStyle.Render(line))
		}
	}
	return lines
}

var (
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	accentColor = lipgloss.Color("#7D56F4")
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7A85")).Padding(0, 1)
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	parts := []string{
		renderBanner(m.modelName, m.market, m.width),
		m.viewport.View(),
	}
	if popup := m.slash.View(m.contentWidth()); popup != "" {
		parts = append(parts, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5E6472")).
			Render(popup))
	}
	parts = append(parts, lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Render(m.textarea.View()))
	parts = append(parts, mutedStyle.Render(m.status.View(m.contentWidth(), m.spin.View())))
	parts = append(parts, renderHints(m.width))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// History 返回当前完整对话历史的副本。
func (m *Model) History() []agent.Message {
	return agent.CloneMessages(m.messages)
}

func (m *Model) SessionID() string {
	return m.sessionID
}

// LastSources 返回最近一次回答引用的内部研究片段。
func (m *Model) LastSources() []string {
	return append([]string(nil), m.lastSource...)
}

func renderBanner(model, market string, width int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render(">_ Finsight")
	info := mutedStyle.Render(fmt.Sprintf("model %s • market %s", model, market))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Width(max(40, width-2)).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, title, info))
}

func renderHints(width int) string {
	hint := "Enter 发送 • Alt+Enter 换行 • ↑/↓ 历史 • PgUp/PgDn 滚动 • Esc 取消 • / 命令 • Ctrl+C 退出"
	return mutedStyle.Width(max(20, width)).Render(hint)
}

func lastAnswer(msgs []agent.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.Role == agent.RoleAssistant && !msg.HasToolCalls() && strings.TrimSpace(msg.Content) != "" {
			return msg.Content
		}
	}
	return ""
}

func lastPrompt(msgs []agent.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == agent.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
