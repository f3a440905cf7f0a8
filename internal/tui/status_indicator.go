package tui

import (
	"fmt"
	"time"

	"finsight/internal/events"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// StatusIndicatorState 枚举了状态指示器可显示的所有状态。
type StatusIndicatorState int

const (
	StatusIdle StatusIndicatorState = iota
	StatusWorking
	StatusError
)

func (s StatusIndicatorState) String() string {
	switch s {
	case StatusWorking:
		return "working"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

const researchingHeader = "Agent researching..."

// StatusIndicator 渲染 "Agent researching..." 状态行：spinner + 标题 + 当前步骤 + 计时。
// 步骤文本由 agent 循环发布到事件总线的进度事件驱动。
type StatusIndicator struct {
	state   StatusIndicatorState
	header  string
	detail  string
	started time.Time
	clock   func() time.Time
}

func NewStatusIndicator(clock func() time.Time) *StatusIndicator {
	if clock == nil {
		clock = time.Now
	}
	return &StatusIndicator{clock: clock}
}

func (w *StatusIndicator) State() StatusIndicatorState { return w.state }

// Start 进入 working 并重新计时。
func (w *StatusIndicator) Start() {
	w.state = StatusWorking
	w.header = researchingHeader
	w.detail = ""
	w.started = w.clock()
}

// Stop 回到 idle。
func (w *StatusIndicator) Stop() {
	w.state = StatusIdle
	w.detail = ""
}

// Fail 进入 error，保留错误描述直到下一次 Start。
func (w *StatusIndicator) Fail(detail string) {
	w.state = StatusError
	w.header = "Error"
	w.detail = detail
}

// Observe 根据进度事件更新步骤描述；idle 时忽略迟到的事件。
func (w *StatusIndicator) Observe(evt events.Event) {
	if w.state != StatusWorking {
		return
	}
	switch evt.Type {
	case events.EventModelRequested:
		w.detail = fmt.Sprintf("thinking (step %d)", evt.Iteration)
	case events.EventToolStarted:
		w.detail = "calling " + evt.Tool
	case events.EventToolCompleted:
		w.detail = fmt.Sprintf("%s %s in %s", evt.Tool, evt.Status, evt.Duration.Round(time.Millisecond))
	}
}

// View 绘制单行状态，超出宽度时截断。
func (w *StatusIndicator) View(width int, spinFrame string) string {
	switch w.state {
	case StatusIdle:
		return ""
	case StatusError:
		return truncateToWidth(lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626")).Render("! "+w.header+": "+w.detail), width)
	}
	elapsed := fmtElapsedCompact(uint64(w.clock().Sub(w.started).Seconds()))
	text := spinFrame + " " + w.header
	if w.detail != "" {
		text += " " + w.detail
	}
	text += " " + lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("(%s)", elapsed))
	return truncateToWidth(text, width)
}

// fmtElapsedCompact 将秒数格式化为友好字符串。
func fmtElapsedCompact(elapsedSecs uint64) string {
	switch {
	case elapsedSecs < 60:
		return fmt.Sprintf("%ds", elapsedSecs)
	case elapsedSecs < 3600:
		minutes := elapsedSecs / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dm %02ds", minutes, seconds)
	default:
		hours := elapsedSecs / 3600
		minutes := (elapsedSecs % 3600) / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dh %02dm %02ds", hours, minutes, seconds)
	}
}

func truncateToWidth(text string, width int) string {
	if width <= 0 || lipgloss.Width(text) <= width {
		return text
	}
	return runewidth.Truncate(text, width, "…")
}
