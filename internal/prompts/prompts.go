package prompts

import (
	"fmt"
	"strings"

	"finsight/internal/i18n"
)

const notesHeader = "Analyst notes (follow unless they conflict with the rules above):"

// BuildLanguageInstruction 构造回答语言指令；默认语言返回空串。
func BuildLanguageInstruction(lang i18n.Language) string {
	if lang.IsDefault() {
		return ""
	}
	return fmt.Sprintf("Default language: %s. Respond in this language unless the user explicitly requests another; keep tickers and numbers unchanged.", lang.DisplayName())
}

// IsLanguageInstruction 判断文本是否为回答语言指令。
func IsLanguageInstruction(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "Default language:")
}

// BuildSystem 拼出发送给模型的系统指令：基础规则、语言指令、分析师备注，空段跳过。
func BuildSystem(base string, lang i18n.Language, notes string) string {
	parts := make([]string, 0, 3)
	if text := strings.TrimSpace(base); text != "" {
		parts = append(parts, text)
	}
	if text := BuildLanguageInstruction(lang); text != "" {
		parts = append(parts, text)
	}
	if text := strings.TrimSpace(notes); text != "" {
		parts = append(parts, notesHeader+"\n"+text)
	}
	return strings.Join(parts, "\n\n")
}
