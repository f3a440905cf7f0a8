package knowledge

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Split 把文本切成最多 size 个字符、相邻块重叠 overlap 个字符的片段。
// 切点优先落在段落、换行或空白处，避免截断单词。
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		// 重叠部分从下一个空白处开始，避免以半个单词开头。
		for i := next; i < end; i++ {
			if unicode.IsSpace(runes[i]) {
				next = i
				break
			}
		}
		start = next
	}
	return chunks
}

// breakPoint 在 [start+size/2, end) 内从后往前寻找最合适的切点。
func breakPoint(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	for _, sep := range []string{"\n\n", "\n", " "} {
		sepRunes := []rune(sep)
		for i := end - len(sepRunes); i >= floor; i-- {
			if string(runes[i:i+len(sepRunes)]) == sep {
				return i + len(sepRunes)
			}
		}
	}
	return end
}
