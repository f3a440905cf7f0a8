package slash

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	nameStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C4A1FF"))
	descStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	highlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EBCB8B"))
	selectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#2F2A3D"))
)

// View 渲染弹窗内容（不含外围边框）。
func (s *State) View(width int) string {
	if s == nil || !s.open {
		return ""
	}
	if width < 20 {
		width = 20
	}
	if len(s.matches) == 0 {
		return descStyle.Render("no matches")
	}

	nameWidth := 0
	for _, m := range s.matches {
		nameWidth = max(nameWidth, runewidth.StringWidth(m.item.DisplayName()))
	}
	nameWidth = min(nameWidth+2, width/2)
	descWidth := max(width-nameWidth, 8)

	start := 0
	if s.selected >= s.maxLines {
		start = s.selected - s.maxLines + 1
	}
	end := min(start+s.maxLines, len(s.matches))

	lines := make([]string, 0, end-start)
	for idx := start; idx < end; idx++ {
		m := s.matches[idx]
		name := highlight(m.item.DisplayName(), m.highlights)
		name += strings.Repeat(" ", max(nameWidth-runewidth.StringWidth(m.item.DisplayName()), 1))
		desc := runewidth.Truncate(m.item.Description, descWidth, "…")
		line := name + descStyle.Render(desc)
		if idx == s.selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// highlight 为匹配到的字符加粗；indexes 以 token 计，跳过前导斜杠。
func highlight(name string, indexes []int) string {
	if len(indexes) == 0 {
		return nameStyle.Render(name)
	}
	marked := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		marked[idx+1] = true
	}
	var b strings.Builder
	for i, r := range []rune(name) {
		if marked[i] {
			b.WriteString(highlightStyle.Render(string(r)))
			continue
		}
		b.WriteString(nameStyle.Render(string(r)))
	}
	return b.String()
}
