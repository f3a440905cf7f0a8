package main

import (
	"bytes"
	"strings"
	"testing"

	"finsight/internal/agent"
	"finsight/internal/session"

	"github.com/spf13/afero"
)

func TestRunExportWritesReport(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := session.NewStore(fs, "/sessions")
	id, err := store.Save("", []agent.Message{
		{Role: agent.RoleUser, Content: "MSFT AI plans"},
		{Role: agent.RoleAssistant, ToolCalls: []agent.ToolCall{{ID: "c1", Name: "query_private_database"}}},
		{Role: agent.RoleTool, ToolCallID: "c1", Content: "Copilot rollout"},
		{Role: agent.RoleAssistant, Content: "Microsoft is rolling out Copilot."},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	var out bytes.Buffer
	if err := runExport(fs, store, id, false, "", &out); err != nil {
		t.Fatalf("runExport: %v", err)
	}
	data, err := afero.ReadFile(fs, "report_MSFT_AI_plans.txt")
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "FINANCIAL INTELLIGENCE REPORT\n==============================\n\n") {
		t.Fatalf("unexpected header:\n%s", text)
	}
	if strings.Contains(text, "Copilot rollout\n") {
		t.Fatalf("tool output must not appear in the report:\n%s", text)
	}
	if !strings.Contains(out.String(), "report_MSFT_AI_plans.txt") {
		t.Fatalf("unexpected output: %s", out.String())
	}

	if err := runExport(fs, store, "", true, "/out/brief.txt", &out); err != nil {
		t.Fatalf("runExport --last: %v", err)
	}
	if ok, _ := afero.Exists(fs, "/out/brief.txt"); !ok {
		t.Fatalf("expected /out/brief.txt to be written")
	}

	if err := runExport(fs, store, "", false, "", &out); err == nil {
		t.Fatalf("expected error without --session or --last")
	}
}
