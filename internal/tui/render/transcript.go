package render

import (
	"fmt"
	"strings"

	"finsight/internal/agent"
	"finsight/internal/logger"

	"github.com/charmbracelet/lipgloss"
)

var (
	userPrefixStyle      = lipgloss.NewStyle().Faint(true).Bold(true)
	assistantPrefixStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	toolStyle            = lipgloss.NewStyle().Faint(true)
	toolErrorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	sourceStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

const toolPreview = 96

// Messages 把对话渲染为按宽度换行后的行。
// assistant 的工具调用与 tool 结果各占一行摘要，正文只展示问题与回答。
func Messages(msgs []agent.Message, width int) []string {
	if width <= 4 {
		width = 80
	}
	lines := []string{}
	for _, msg := range msgs {
		switch msg.Role {
		case agent.RoleUser:
			lines = append(lines, "")
			lines = append(lines, prefixed(msg.Content, width, userPrefixStyle.Render("› "), "  ")...)
		case agent.RoleAssistant:
			for _, call := range msg.ToolCalls {
				summary := fmt.Sprintf("→ %s %s", call.Name, logger.Preview(string(call.Arguments), toolPreview))
				lines = append(lines, toolStyle.Render(summary))
			}
			if strings.TrimSpace(msg.Content) != "" {
				lines = append(lines, "")
				lines = append(lines, prefixed(msg.Content, width, assistantPrefixStyle.Render("• "), "  ")...)
			}
		case agent.RoleTool:
			style := toolStyle
			mark := "←"
			if msg.IsError {
				style = toolErrorStyle
				mark = "✗"
			}
			summary := fmt.Sprintf("%s %s", mark, logger.Preview(msg.Content, toolPreview))
			if n := len(msg.Sources); n > 0 {
				summary += fmt.Sprintf(" (%d sources)", n)
			}
			lines = append(lines, style.Render(summary))
		default:
			lines = append(lines, Wrap(msg.Content, width)...)
		}
	}
	return lines
}

// Sources 渲染 /sources 展开的研究片段列表。
func Sources(sources []string, width int) []string {
	if len(sources) == 0 {
		return []string{sourceStyle.Render("No internal research was used for the last answer.")}
	}
	lines := []string{"Internal research sources:"}
	for i, src := range sources {
		lines = append(lines, prefixed(src, width, sourceStyle.Render(fmt.Sprintf("%d. ", i+1)), "   ")...)
	}
	return lines
}

func prefixed(text string, width int, first, rest string) []string {
	body := Wrap(strings.TrimRight(text, "\n"), width-lipgloss.Width(first))
	out := make([]string, 0, len(body))
	for i, line := range body {
		if i == 0 {
			out = append(out, first+line)
			continue
		}
		out = append(out, rest+line)
	}
	return out
}
