package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// IngestReport 汇总一次目录导入。
type IngestReport struct {
	Files   int
	Skipped []string
	Added   int
	Total   int
}

var ingestExtensions = map[string]bool{".txt": true, ".md": true}

// Ingest 遍历 root 下的 .txt/.md 文件并写入索引。已入库的片段不会重复写入。
func Ingest(ctx context.Context, idx *Index, fsys afero.Fs, root string) (IngestReport, error) {
	var report IngestReport
	var paths []string
	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !ingestExtensions[strings.ToLower(filepath.Ext(path))] {
			report.Skipped = append(report.Skipped, path)
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)

	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return report, fmt.Errorf("read %s: %w", path, err)
		}
		source := path
		if rel, err := filepath.Rel(root, path); err == nil {
			source = filepath.ToSlash(rel)
		}
		docs = append(docs, Document{Source: source, Content: string(data)})
	}
	report.Files = len(docs)

	added, err := idx.AddDocuments(ctx, docs)
	report.Added = added
	if err != nil {
		return report, err
	}
	total, err := idx.Count(ctx)
	if err != nil {
		return report, err
	}
	report.Total = total
	log.Infof("ingest %s: files=%d added=%d total=%d collection=%s", root, report.Files, report.Added, report.Total, idx.collection)
	return report, nil
}
