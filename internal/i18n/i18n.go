package i18n

import "strings"

// Language 是回答语言的短代码（en、zh 等），来自配置项 language。
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"

	// DefaultLanguage 未配置时的回答语言。
	DefaultLanguage = LanguageEnglish
)

// Normalize 把配置里的各种写法统一为语言代码；空值回退到默认语言，未知值原样保留。
func Normalize(value string) Language {
	lang := strings.ToLower(strings.TrimSpace(value))
	switch lang {
	case "":
		return DefaultLanguage
	case "en", "en-us", "en_us", "en-gb", "english":
		return LanguageEnglish
	case "zh", "zh-cn", "zh_cn", "zh-hans", "cn", "chinese", "中文":
		return LanguageChinese
	default:
		return Language(lang)
	}
}

// Code 返回规范化后的语言代码。
func (l Language) Code() string {
	return string(Normalize(string(l)))
}

// IsDefault 报告是否为默认语言；默认语言不需要额外的语言指令。
func (l Language) IsDefault() bool {
	return Normalize(string(l)) == DefaultLanguage
}

// DisplayName 返回适合写进提示词的语言名称，未知语言直接返回代码。
func (l Language) DisplayName() string {
	switch n := Normalize(string(l)); n {
	case LanguageEnglish:
		return "English"
	case LanguageChinese:
		return "Chinese (中文)"
	default:
		return string(n)
	}
}
