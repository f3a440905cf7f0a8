package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"finsight/internal/agent"
)

type quoteArgs struct {
	Ticker string `json:"ticker" jsonschema:"description=Stock ticker symbol"`
}

func quoteTool(fn func(ctx context.Context, in quoteArgs) (Output, error)) Definition {
	return NewTool("get_stock_price", "Fetch a quote.", fn)
}

func newFrozenRegistry(t *testing.T, defs ...Definition) *Registry {
	t.Helper()
	r, err := NewRegistry(defs...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	r.Freeze()
	return r
}

func TestRegisterRejectsDuplicatesAndFrozen(t *testing.T) {
	ok := func(context.Context, quoteArgs) (Output, error) { return Output{Content: "ok"}, nil }
	r, err := NewRegistry(quoteTool(ok))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	err = r.Register(quoteTool(ok))
	var dup *DuplicateToolError
	if !errors.As(err, &dup) || dup.Name != "get_stock_price" {
		t.Fatalf("expected DuplicateToolError, got %v", err)
	}

	if err := r.Register(Definition{Name: "", Handler: func(context.Context, json.RawMessage) (Output, error) { return Output{}, nil }}); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := r.Register(Definition{Name: "no_handler"}); err == nil {
		t.Fatalf("expected error for nil handler")
	}

	r.Freeze()
	err = r.Register(NewTool("late", "late tool", func(context.Context, quoteArgs) (Output, error) { return Output{}, nil }))
	if !errors.Is(err, ErrRegistryFrozen) {
		t.Fatalf("expected ErrRegistryFrozen, got %v", err)
	}
	if got := r.Names(); len(got) != 1 || got[0] != "get_stock_price" {
		t.Fatalf("names = %v", got)
	}
}

func TestResolveUnknownTool(t *testing.T) {
	r := newFrozenRegistry(t)
	_, err := r.Resolve("nope")
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) || unknown.Name != "nope" {
		t.Fatalf("expected UnknownToolError, got %v", err)
	}
}

func TestRunFoldsErrorsIntoResults(t *testing.T) {
	handler := func(_ context.Context, in quoteArgs) (Output, error) {
		switch in.Ticker {
		case "FAIL":
			return Output{}, errors.New("provider down")
		case "PANIC":
			panic("boom")
		case "BAD":
			return Output{}, InvalidArgument("ticker", "unsupported symbol %q", in.Ticker)
		}
		return Output{Content: `{"ticker":"` + in.Ticker + `"}`}, nil
	}
	r := newFrozenRegistry(t, quoteTool(handler))

	cases := []struct {
		name     string
		call     agent.ToolCall
		wantErr  bool
		wantKind string
		contains string
	}{
		{name: "ok", call: agent.ToolCall{ID: "1", Name: "get_stock_price", Arguments: json.RawMessage(`{"ticker":"NVDA"}`)}, contains: "NVDA"},
		{name: "unknown", call: agent.ToolCall{ID: "2", Name: "missing"}, wantErr: true, wantKind: agent.ErrKindUnknownTool, contains: "missing"},
		{name: "missing arg", call: agent.ToolCall{ID: "3", Name: "get_stock_price", Arguments: json.RawMessage(`{}`)}, wantErr: true, wantKind: agent.ErrKindInvalidArguments, contains: "ticker"},
		{name: "wrong type", call: agent.ToolCall{ID: "4", Name: "get_stock_price", Arguments: json.RawMessage(`{"ticker":5}`)}, wantErr: true, wantKind: agent.ErrKindInvalidArguments, contains: "expected string"},
		{name: "not object", call: agent.ToolCall{ID: "5", Name: "get_stock_price", Arguments: json.RawMessage(`["NVDA"]`)}, wantErr: true, wantKind: agent.ErrKindInvalidArguments, contains: "JSON object"},
		{name: "handler invalid", call: agent.ToolCall{ID: "6", Name: "get_stock_price", Arguments: json.RawMessage(`{"ticker":"BAD"}`)}, wantErr: true, wantKind: agent.ErrKindInvalidArguments, contains: "unsupported symbol"},
		{name: "handler failure", call: agent.ToolCall{ID: "7", Name: "get_stock_price", Arguments: json.RawMessage(`{"ticker":"FAIL"}`)}, wantErr: true, wantKind: agent.ErrKindToolExecution, contains: "provider down"},
		{name: "panic", call: agent.ToolCall{ID: "8", Name: "get_stock_price", Arguments: json.RawMessage(`{"ticker":"PANIC"}`)}, wantErr: true, wantKind: agent.ErrKindToolExecution, contains: "panic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := r.Run(context.Background(), tc.call)
			if res.CallID != tc.call.ID {
				t.Fatalf("call id = %q, want %q", res.CallID, tc.call.ID)
			}
			if res.IsError != tc.wantErr || res.Kind != tc.wantKind {
				t.Fatalf("IsError=%v Kind=%q, want %v %q (content=%s)", res.IsError, res.Kind, tc.wantErr, tc.wantKind, res.Content)
			}
			if !strings.Contains(res.Content, tc.contains) {
				t.Fatalf("content %q does not contain %q", res.Content, tc.contains)
			}
		})
	}
}

func TestRunTimeoutIsSoftError(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := newFrozenRegistry(t, quoteTool(func(context.Context, quoteArgs) (Output, error) {
		<-block
		return Output{Content: "late"}, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out := r.Execute(ctx, agent.ToolCall{ID: "slow", Name: "get_stock_price", Arguments: json.RawMessage(`{"ticker":"NVDA"}`)})
	if !out.IsError || out.Kind != agent.ErrKindToolExecution || !strings.Contains(out.Content, "timed out") {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestSpecsKeepRegistrationOrderAndSources(t *testing.T) {
	kb := NewTool("query_private_database", "Search internal research.", func(_ context.Context, in struct {
		Query string `json:"query"`
	}) (Output, error) {
		return Output{Content: "p1\n\np2", Sources: []string{"p1", "p2"}}, nil
	})
	r := newFrozenRegistry(t, quoteTool(func(context.Context, quoteArgs) (Output, error) { return Output{}, nil }), kb)

	specs := r.Specs()
	if len(specs) != 2 || specs[0].Name != "get_stock_price" || specs[1].Name != "query_private_database" {
		t.Fatalf("specs = %+v", specs)
	}

	out := r.Execute(context.Background(), agent.ToolCall{ID: "k", Name: "query_private_database", Arguments: json.RawMessage(`{"query":"AI"}`)})
	if out.IsError || len(out.Sources) != 2 {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
