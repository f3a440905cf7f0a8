package report

import (
	"path/filepath"
	"strings"

	"finsight/internal/agent"

	"github.com/spf13/afero"
)

const (
	Header       = "FINANCIAL INTELLIGENCE REPORT"
	defaultLabel = "analysis"
)

// Render 把对话渲染为纯文本研究简报，只包含用户提问与最终回答。
func Render(messages []agent.Message) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 30))
	b.WriteString("\n\n")
	for _, msg := range agent.Conversation(messages) {
		role := "AGENT"
		if msg.Role == agent.RoleUser {
			role = "USER"
		}
		b.WriteString(role)
		b.WriteString(":\n")
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// FileName 返回 report_<label>.txt，label 取最后一次提问，空格替换为下划线。
func FileName(lastPrompt string) string {
	label := strings.TrimSpace(lastPrompt)
	if label == "" {
		label = defaultLabel
	}
	label = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '\n', '\r', '\t':
			return '_'
		}
		return r
	}, label)
	return "report_" + label + ".txt"
}

// Write 渲染并写入 path；path 为空时在 dir 下按 FileName 命名。返回写入的路径。
func Write(fsys afero.Fs, dir, path string, messages []agent.Message, lastPrompt string) (string, error) {
	if path == "" {
		path = filepath.Join(dir, FileName(lastPrompt))
	}
	if parent := filepath.Dir(path); parent != "" && parent != "." {
		if err := fsys.MkdirAll(parent, 0o755); err != nil {
			return "", err
		}
	}
	if err := afero.WriteFile(fsys, path, []byte(Render(messages)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
