package render

import (
	"encoding/json"
	"strings"
	"testing"

	"finsight/internal/agent"
)

func TestMessagesSummarizesToolTraffic(t *testing.T) {
	msgs := []agent.Message{
		{Role: agent.RoleUser, Content: "How is MSFT doing?"},
		{Role: agent.RoleAssistant, ToolCalls: []agent.ToolCall{{ID: "c1", Name: "get_stock_price", Arguments: json.RawMessage(`{"ticker":"MSFT"}`)}}},
		{Role: agent.RoleTool, ToolCallID: "c1", Content: `{"ticker":"MSFT","price":442.57}`},
		{Role: agent.RoleTool, ToolCallID: "c2", Content: "Error (UnknownToolError): nope", IsError: true},
		{Role: agent.RoleAssistant, Content: "MSFT trades at 442.57."},
	}
	joined := strings.Join(Messages(msgs, 80), "\n")
	for _, want := range []string{"How is MSFT doing?", "get_stock_price", `"price":442.57`, "UnknownToolError", "MSFT trades at 442.57."} {
		if !strings.Contains(joined, want) {
			t.Fatalf("rendered transcript missing %q:\n%s", want, joined)
		}
	}
}

func TestSourcesEmptyAndNumbered(t *testing.T) {
	empty := Sources(nil, 80)
	if len(empty) != 1 || !strings.Contains(empty[0], "No internal research") {
		t.Fatalf("unexpected empty rendering: %v", empty)
	}
	lines := Sources([]string{"nvidia.md: Blackwell ramps", "msft.md: Copilot"}, 80)
	if len(lines) != 3 || !strings.Contains(lines[2], "2. ") {
		t.Fatalf("unexpected sources rendering: %v", lines)
	}
}
