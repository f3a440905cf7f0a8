package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"finsight/internal/agent"
	"finsight/internal/session"

	"github.com/spf13/afero"
)

type stubRunner struct {
	seen   []agent.Message
	result agent.Result
	err    error
}

func (s *stubRunner) Run(_ context.Context, history []agent.Message) (agent.Result, error) {
	s.seen = agent.CloneMessages(history)
	return s.result, s.err
}

func answered(answer string, sources ...string) agent.Result {
	return agent.Result{
		RunID:       "run-1",
		NewMessages: []agent.Message{{Role: agent.RoleAssistant, Content: answer}},
		FinalAnswer: answer,
		Sources:     sources,
		Iterations:  1,
	}
}

func TestRunExecPrintsAnswerAndSources(t *testing.T) {
	runner := &stubRunner{result: answered("NVDA is up 42%.", "roadmap.md: GPU plan")}
	var out bytes.Buffer
	if err := runExec(context.Background(), runner, nil, execRequest{Question: "NVDA?"}, &out); err != nil {
		t.Fatalf("runExec: %v", err)
	}
	if len(runner.seen) != 1 || runner.seen[0].Content != "NVDA?" {
		t.Fatalf("runner saw %#v", runner.seen)
	}
	text := out.String()
	if !strings.Contains(text, "NVDA is up 42%.") || !strings.Contains(text, "1. roadmap.md: GPU plan") {
		t.Fatalf("unexpected output:\n%s", text)
	}
}

func TestRunExecJSONSavesAndContinuesSession(t *testing.T) {
	store := session.NewStore(afero.NewMemMapFs(), "/sessions")
	runner := &stubRunner{result: answered("AAPL is at 212.49.")}

	var out bytes.Buffer
	if err := runExec(context.Background(), runner, store, execRequest{Question: "AAPL price", Save: true, JSON: true}, &out); err != nil {
		t.Fatalf("runExec: %v", err)
	}
	var got execOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if got.SessionID == "" || got.Answer != "AAPL is at 212.49." || got.Iterations != 1 {
		t.Fatalf("unexpected output: %+v", got)
	}
	if len(got.NewMessages) != 2 || got.NewMessages[0].Role != agent.RoleUser || got.NewMessages[1].Role != agent.RoleAssistant {
		t.Fatalf("new_messages = %#v, want user + assistant", got.NewMessages)
	}

	runner.result = answered("Down 1% since yesterday.")
	out.Reset()
	if err := runExec(context.Background(), runner, store, execRequest{Question: "and vs yesterday?", SessionID: got.SessionID}, &out); err != nil {
		t.Fatalf("runExec continue: %v", err)
	}
	if len(runner.seen) != 3 {
		t.Fatalf("continued run saw %d messages, want 3", len(runner.seen))
	}
	rec, err := store.Load(got.SessionID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rec.Messages) != 4 {
		t.Fatalf("saved session has %d messages, want 4", len(rec.Messages))
	}
}

func TestRunExecJSONReportsFatalKind(t *testing.T) {
	partial := []agent.Message{{Role: agent.RoleAssistant, ToolCalls: []agent.ToolCall{{ID: "c1", Name: "get_stock_price"}}}}
	runner := &stubRunner{err: &agent.MaxIterationsExceededError{Limit: 8, Partial: partial}}
	var out bytes.Buffer
	err := runExec(context.Background(), runner, nil, execRequest{Question: "loop forever", JSON: true}, &out)
	var maxErr *agent.MaxIterationsExceededError
	if !errors.As(err, &maxErr) {
		t.Fatalf("err = %v, want MaxIterationsExceededError", err)
	}
	var got execOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got.Kind != "MaxIterationsExceeded" || len(got.NewMessages) != 1 {
		t.Fatalf("unexpected error output: %+v", got)
	}
}

func TestRunExecUnknownSession(t *testing.T) {
	store := session.NewStore(afero.NewMemMapFs(), "/sessions")
	err := runExec(context.Background(), &stubRunner{}, store, execRequest{Question: "hi", SessionID: "missing"}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for missing session")
	}
}
