package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"finsight/internal/knowledge"

	"github.com/spf13/afero"
)

func ingestMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	var cfgPath string
	var dir string
	var reset bool
	var configOverrides stringSlice
	fs.StringVar(&cfgPath, "config", "", "Path to config file (default ~/.finsight/config.toml)")
	fs.StringVar(&dir, "dir", "docs", "Directory of .txt/.md research documents")
	fs.BoolVar(&reset, "reset", false, "Delete the collection before ingesting")
	fs.Var(&configOverrides, "c", "Override config value key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse ingest args: %v", err)
	}

	cfg, err := loadConfig(root, cfgPath, configOverrides)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	store, index, err := buildIndex(cfg)
	if err != nil {
		log.Fatalf("failed to open index: %v", err)
	}
	defer store.Close()

	if err := runIngest(context.Background(), store, index, afero.NewOsFs(), dir, reset, os.Stdout); err != nil {
		store.Close()
		log.Fatalf("ingest failed: %v", err)
	}
}

func runIngest(ctx context.Context, store *knowledge.Store, index *knowledge.Index, fsys afero.Fs, dir string, reset bool, out io.Writer) error {
	if reset {
		if err := store.Reset(ctx, index.Collection()); err != nil {
			return fmt.Errorf("reset collection: %w", err)
		}
		_, _ = fmt.Fprintf(out, "collection %s cleared\n", index.Collection())
	}
	report, err := knowledge.Ingest(ctx, index, fsys, dir)
	if err != nil {
		return err
	}
	for _, f := range report.Skipped {
		_, _ = fmt.Fprintf(out, "skipped %s\n", f)
	}
	_, _ = fmt.Fprintf(out, "ingested %d file(s): %d new passage(s), %d total in %s\n",
		report.Files, report.Added, report.Total, index.Collection())
	return nil
}
