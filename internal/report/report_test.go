package report

import (
	"testing"

	"finsight/internal/agent"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var transcript = []agent.Message{
	{Role: agent.RoleUser, Content: "Should I buy NVDA?"},
	{Role: agent.RoleAssistant, ToolCalls: []agent.ToolCall{{ID: "call_1", Name: "get_stock_price"}}},
	{Role: agent.RoleTool, ToolCallID: "call_1", Content: `{"ticker":"NVDA"}`},
	{Role: agent.RoleAssistant, Content: "NVDA looks strong."},
}

func TestRenderSkipsToolTraffic(t *testing.T) {
	want := "FINANCIAL INTELLIGENCE REPORT\n" +
		"==============================\n\n" +
		"USER:\nShould I buy NVDA?\n\n" +
		"AGENT:\nNVDA looks strong.\n\n"
	require.Equal(t, want, Render(transcript))
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"Should I buy NVDA?": "report_Should_I_buy_NVDA?.txt",
		"":                   "report_analysis.txt",
		"AAPL/MSFT compare":  "report_AAPL_MSFT_compare.txt",
	}
	for in, want := range cases {
		require.Equal(t, want, FileName(in), in)
	}
}

func TestWriteDefaultsToReportName(t *testing.T) {
	fsys := afero.NewMemMapFs()

	path, err := Write(fsys, "/out", "", transcript, "Should I buy NVDA?")
	require.NoError(t, err)
	require.Equal(t, "/out/report_Should_I_buy_NVDA?.txt", path)

	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	require.Equal(t, Render(transcript), string(data))
}
