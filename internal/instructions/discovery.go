package instructions

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	// NotesFilename 是分析师备注文件名，内容会追加到系统指令之后。
	NotesFilename = "ANALYST.md"
	// NotesOverrideFilename 存在时替代同目录的 ANALYST.md。
	NotesOverrideFilename = "ANALYST.override.md"
)

// Discover 读取备注链：先 homeDir/ANALYST.md，再从根目录到 workdir 逐级读取。
// 同一目录下 override 优先；全部缺失时返回空串。
func Discover(fsys afero.Fs, homeDir, workdir string) string {
	var parts []string

	if homeDir != "" {
		if text := readNotes(fsys, filepath.Join(homeDir, NotesFilename)); text != "" {
			parts = append(parts, text)
		}
	}

	if workdir == "" {
		return strings.Join(parts, "\n\n")
	}
	dir := filepath.Clean(workdir)
	chain := []string{}
	prev := ""
	for dir != prev && dir != string(filepath.Separator) && dir != "." {
		chain = append(chain, dir)
		prev = dir
		dir = filepath.Dir(dir)
	}
	// top-down precedence
	for i := len(chain) - 1; i >= 0; i-- {
		curr := chain[i]
		if text := readNotes(fsys, filepath.Join(curr, NotesOverrideFilename)); text != "" {
			parts = append(parts, text)
			continue
		}
		if text := readNotes(fsys, filepath.Join(curr, NotesFilename)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func readNotes(fsys afero.Fs, path string) string {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
