package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// maxAttachmentBytes 限制单个附件写进问题的长度，超出部分截断。
const maxAttachmentBytes = 32 * 1024

// attachment 是随问题一起发送给模型的研究材料。
type attachment struct {
	Name string
	Text string
}

// loadAttachments 读取 --attach 指定的文件；读失败的文件记录警告后跳过。
func loadAttachments(fsys afero.Fs, paths []string, workdir string) []attachment {
	var out []attachment
	for _, p := range paths {
		path := p
		if !filepath.IsAbs(path) && workdir != "" {
			path = filepath.Join(workdir, path)
		}
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			log.Warnf("attachment read failed (%s): %v", p, err)
			continue
		}
		text := strings.TrimSpace(string(data))
		if len(text) > maxAttachmentBytes {
			log.Warnf("attachment %s truncated to %d bytes", p, maxAttachmentBytes)
			text = strings.ToValidUTF8(text[:maxAttachmentBytes], "") + "\n[truncated]"
		}
		out = append(out, attachment{Name: p, Text: text})
	}
	return out
}

// withAttachments 把附件追加在问题之后，会话标题仍取问题本身。
func withAttachments(question string, atts []attachment) string {
	if len(atts) == 0 {
		return question
	}
	var b strings.Builder
	b.WriteString(question)
	for _, a := range atts {
		fmt.Fprintf(&b, "\n\nAttachment %s:\n%s", a.Name, a.Text)
	}
	return b.String()
}
