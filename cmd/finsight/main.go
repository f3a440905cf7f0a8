package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"finsight/internal/agent"
	"finsight/internal/config"
	"finsight/internal/history"
	"finsight/internal/logger"
	"finsight/internal/session"
	"finsight/internal/tools"
	"finsight/internal/tui"
)

const version = "0.1.0"

func main() {
	root, rest, err := parseRootArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse args: %v\n", err)
		os.Exit(2)
	}

	logger.Configure(root.logLevel)
	logDir := filepath.Join(config.HomeDir(), "logs")
	if logFile, _, err := logger.SetupFile(filepath.Join(logDir, "finsight.log")); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		defer logFile.Close()
	}
	if toolsCloser, _, err := tools.SetupToolsLog(filepath.Join(logDir, "tools.log")); err != nil {
		log.Warnf("failed to initialize tools log: %v", err)
	} else if toolsCloser != nil {
		defer toolsCloser.Close()
	}
	if llmCloser, _, err := logger.SetupLLMFile(filepath.Join(logDir, "llm.log")); err != nil {
		log.Warnf("failed to initialize llm log: %v", err)
	} else if llmCloser != nil {
		defer llmCloser.Close()
	}

	if len(rest) > 0 {
		switch rest[0] {
		case "exec":
			execMain(root, rest[1:])
			return
		case "serve":
			serveMain(root, rest[1:])
			return
		case "ingest":
			ingestMain(root, rest[1:])
			return
		case "check":
			checkMain(root, rest[1:])
			return
		case "export":
			exportMain(root, rest[1:])
			return
		case "config":
			configMain(root, rest[1:])
			return
		case "login":
			loginMain(root, rest[1:])
			return
		case "logout":
			logoutMain(rest[1:])
			return
		case "completion":
			completionMain(rest[1:])
			return
		case "version":
			fmt.Println("finsight " + version)
			return
		}
	}

	runInteractive(root, rest)
}

type interactiveArgs struct {
	cfgPath         string
	modelOverride   string
	configOverrides stringSlice
	resumeSessionID string
	resumeLast      bool
	exportDir       string
	prompt          string
}

func newInteractiveFlagSet(name string) (*flag.FlagSet, *interactiveArgs) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cli := &interactiveArgs{}
	fs.StringVar(&cli.cfgPath, "config", "", "Path to config file (default ~/.finsight/config.toml)")
	fs.StringVar(&cli.modelOverride, "model", "", "Model override")
	fs.StringVar(&cli.modelOverride, "m", "", "Alias for --model")
	fs.Var(&cli.configOverrides, "c", "Override config value key=value (repeatable)")
	fs.StringVar(&cli.resumeSessionID, "resume", "", "Resume a saved session by id")
	fs.BoolVar(&cli.resumeLast, "last", false, "Resume the most recent session")
	fs.StringVar(&cli.exportDir, "export-dir", "", "Directory for /export reports (default current directory)")
	fs.StringVar(&cli.prompt, "prompt", "", "Initial question to send on start")
	return fs, cli
}

func runInteractive(root rootArgs, args []string) {
	fs, cli := newInteractiveFlagSet("finsight")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse args: %v", err)
	}
	if cli.prompt == "" && fs.NArg() > 0 {
		cli.prompt = strings.Join(fs.Args(), " ")
	}

	cfg, err := loadConfig(root, cli.cfgPath, cli.configOverrides)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if m := strings.TrimSpace(cli.modelOverride); m != "" {
		cfg.Model = m
	}

	sessions, err := session.NewDefault()
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	seed, sessionID, err := resolveSeed(sessions, cli.resumeSessionID, cli.resumeLast)
	if err != nil {
		log.Fatalf("failed to resume session: %v", err)
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer rt.Close()

	prompts, err := history.NewDefault()
	if err != nil {
		log.Warnf("prompt history disabled: %v", err)
		prompts = nil
	}

	result, err := tui.Run(tui.Options{
		Runner:          rt.loop,
		Events:          rt.bus,
		Sessions:        sessions,
		History:         prompts,
		Model:           cfg.Model,
		MarketSource:    cfg.MarketSource,
		IndexInfo:       rt.indexInfo(context.Background()),
		InitialMessages: seed,
		SessionID:       sessionID,
		InitialPrompt:   cli.prompt,
		ExportDir:       cli.exportDir,
	})
	if err != nil {
		log.Fatalf("program exit: %v", err)
	}
	if result.SessionID != "" && len(result.History) > 0 {
		fmt.Printf("To continue this session, run finsight --resume %s\n", result.SessionID)
	}
}

// resolveSeed 按 --resume/--last 载入历史；两者都未指定时返回空历史。
func resolveSeed(store *session.Store, id string, last bool) ([]agent.Message, string, error) {
	var (
		rec session.Record
		err error
	)
	switch {
	case strings.TrimSpace(id) != "":
		rec, err = store.Load(id)
	case last:
		rec, err = store.Last()
	default:
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	if err := agent.ValidateHistory(rec.Messages); err != nil {
		return nil, "", fmt.Errorf("session %s: %w", rec.ID, err)
	}
	return rec.Messages, rec.ID, nil
}
