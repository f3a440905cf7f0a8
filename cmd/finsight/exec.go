package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"finsight/internal/agent"
	"finsight/internal/session"

	"github.com/spf13/afero"
)

// execOutput 是 --json 模式下输出的单个 JSON 对象。
type execOutput struct {
	SessionID   string          `json:"session_id,omitempty"`
	RunID       string          `json:"run_id,omitempty"`
	NewMessages []agent.Message `json:"new_messages"`
	Answer      string          `json:"answer,omitempty"`
	Sources     []string        `json:"sources,omitempty"`
	Iterations  int             `json:"iterations"`
	Error       string          `json:"error,omitempty"`
	Kind        string          `json:"kind,omitempty"`
}

type execRunner interface {
	Run(ctx context.Context, history []agent.Message) (agent.Result, error)
}

type execRequest struct {
	Question  string
	SessionID string
	Save      bool
	JSON      bool
}

func execMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	var cfgPath string
	var modelOverride string
	var configOverrides stringSlice
	var req execRequest
	var resumeLast bool
	var attachPaths stringSlice

	fs.StringVar(&cfgPath, "config", "", "Path to config file (default ~/.finsight/config.toml)")
	fs.StringVar(&modelOverride, "model", "", "Model override")
	fs.StringVar(&modelOverride, "m", "", "Alias for --model")
	fs.Var(&configOverrides, "c", "Override config value key=value (repeatable)")
	fs.StringVar(&req.SessionID, "session", "", "Continue a saved session by id")
	fs.BoolVar(&resumeLast, "last", false, "Continue the most recent session")
	fs.BoolVar(&req.Save, "save", false, "Save the conversation as a session")
	fs.BoolVar(&req.JSON, "json", false, "Print the result as JSON")
	fs.Var(&attachPaths, "attach", "Attach a research file to the question (repeatable)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse exec args: %v", err)
	}
	req.Question = strings.TrimSpace(strings.Join(fs.Args(), " "))
	if req.Question == "" {
		log.Fatalf("a question is required: finsight exec \"How is NVDA doing?\"")
	}
	if len(attachPaths) > 0 {
		wd, _ := os.Getwd()
		req.Question = withAttachments(req.Question, loadAttachments(afero.NewOsFs(), attachPaths, wd))
	}

	cfg, err := loadConfig(root, cfgPath, configOverrides)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if m := strings.TrimSpace(modelOverride); m != "" {
		cfg.Model = m
	}
	sessions, err := session.NewDefault()
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	if resumeLast && req.SessionID == "" {
		rec, err := sessions.Last()
		if err != nil {
			log.Fatalf("failed to resume last session: %v", err)
		}
		req.SessionID = rec.ID
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer rt.Close()

	if err := runExec(context.Background(), rt.loop, sessions, req, os.Stdout); err != nil {
		rt.Close()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runExec 执行一次提问。指定 SessionID 时在该会话历史上继续，并把新消息写回。
func runExec(ctx context.Context, runner execRunner, sessions *session.Store, req execRequest, out io.Writer) error {
	var hist []agent.Message
	if req.SessionID != "" {
		if sessions == nil {
			return errors.New("session storage is unavailable")
		}
		rec, err := sessions.Load(req.SessionID)
		if err != nil {
			return fmt.Errorf("load session %s: %w", req.SessionID, err)
		}
		hist = rec.Messages
	}
	user := agent.Message{Role: agent.RoleUser, Content: req.Question}
	hist = append(agent.CloneMessages(hist), user)

	res, err := runner.Run(ctx, hist)
	if err != nil {
		if req.JSON {
			_ = writeJSON(out, execOutput{
				SessionID:   req.SessionID,
				NewMessages: agent.PartialTranscript(err),
				Error:       err.Error(),
				Kind:        agent.ErrorKind(err),
			})
		}
		return err
	}

	sessionID := req.SessionID
	if sessions != nil && (req.Save || sessionID != "") {
		full := append(hist, res.NewMessages...)
		id, err := sessions.Save(sessionID, full)
		if err != nil {
			log.Warnf("save session: %v", err)
		} else {
			sessionID = id
		}
	}

	if req.JSON {
		return writeJSON(out, execOutput{
			SessionID:   sessionID,
			RunID:       res.RunID,
			NewMessages: append([]agent.Message{user}, res.NewMessages...),
			Answer:      res.FinalAnswer,
			Sources:     res.Sources,
			Iterations:  res.Iterations,
		})
	}
	_, _ = fmt.Fprintln(out, res.FinalAnswer)
	if len(res.Sources) > 0 {
		_, _ = fmt.Fprintf(out, "\nInternal research sources (%d):\n", len(res.Sources))
		for i, src := range res.Sources {
			_, _ = fmt.Fprintf(out, "%d. %s\n", i+1, src)
		}
	}
	if sessionID != "" {
		_, _ = fmt.Fprintf(out, "\nsession: %s\n", sessionID)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
