package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"finsight/internal/report"
	"finsight/internal/session"

	"github.com/spf13/afero"
)

func exportMain(_ rootArgs, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var sessionID string
	var outPath string
	var last bool
	fs.StringVar(&sessionID, "session", "", "Session id to export")
	fs.BoolVar(&last, "last", false, "Export the most recent session")
	fs.StringVar(&outPath, "out", "", "Output file (default report_<last question>.txt)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse export args: %v", err)
	}
	if sessionID == "" && fs.NArg() > 0 {
		sessionID = fs.Arg(0)
	}
	sessions, err := session.NewDefault()
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	if err := runExport(afero.NewOsFs(), sessions, sessionID, last, outPath, os.Stdout); err != nil {
		log.Fatalf("export failed: %v", err)
	}
}

func runExport(fsys afero.Fs, sessions *session.Store, sessionID string, last bool, outPath string, out io.Writer) error {
	var (
		rec session.Record
		err error
	)
	switch {
	case sessionID != "":
		rec, err = sessions.Load(sessionID)
	case last:
		rec, err = sessions.Last()
	default:
		return fmt.Errorf("a session is required: --session <id> or --last")
	}
	if err != nil {
		return err
	}
	written, err := report.Write(fsys, "", outPath, rec.Messages, rec.LastPrompt())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "report written to %s\n", written)
	return nil
}
