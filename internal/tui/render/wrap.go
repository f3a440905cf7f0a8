package render

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Wrap 按显示宽度做词级换行，宽字符按 2 列计算，超长单词硬切。
func Wrap(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	lines := []string{}
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, wrapLine(raw, width)...)
	}
	if len(lines) == 0 {
		lines = append(lines, "")
	}
	return lines
}

func wrapLine(line string, width int) []string {
	if runewidth.StringWidth(line) <= width {
		return []string{line}
	}
	out := []string{}
	current := ""
	for _, word := range strings.Fields(line) {
		ww := runewidth.StringWidth(word)
		if current == "" {
			if ww > width {
				parts := breakLongWord(word, width)
				out = append(out, parts[:len(parts)-1]...)
				current = parts[len(parts)-1]
				continue
			}
			current = word
			continue
		}
		if runewidth.StringWidth(current)+1+ww <= width {
			current += " " + word
			continue
		}
		out = append(out, current)
		if ww > width {
			parts := breakLongWord(word, width)
			out = append(out, parts[:len(parts)-1]...)
			current = parts[len(parts)-1]
			continue
		}
		current = word
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

func breakLongWord(word string, width int) []string {
	out := []string{}
	var b strings.Builder
	used := 0
	for _, r := range word {
		rw := runewidth.RuneWidth(r)
		if used+rw > width && used > 0 {
			out = append(out, b.String())
			b.Reset()
			used = 0
		}
		b.WriteRune(r)
		used += rw
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
