package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"finsight/internal/agent"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 2000

type Options struct {
	Token     string
	BaseURL   string
	Model     string
	MaxTokens int64
}

type Client struct {
	api       *anthropic.Client
	model     string
	maxTokens int64
}

var _ agent.ModelClient = (*Client)(nil)

func New(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, errors.New("missing token")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(token),
		option.WithMaxRetries(0),
	}
	if base := normalizeBaseURL(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	client := anthropic.NewClient(reqOpts...)
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		api:       &client,
		model:     strings.TrimSpace(opts.Model),
		maxTokens: maxTokens,
	}, nil
}

func normalizeBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/v1") {
		base = strings.TrimSuffix(base, "/v1")
		base = strings.TrimRight(base, "/")
	}
	return base
}

func (c *Client) resolveModel(m string) anthropic.Model {
	if strings.TrimSpace(m) != "" {
		return anthropic.Model(strings.TrimSpace(m))
	}
	return anthropic.Model(c.model)
}

// Complete 发送一次 Messages 请求，把 text 与 tool_use 块折叠成一条 assistant 消息。
func (c *Client) Complete(ctx context.Context, req agent.Request) (agent.Message, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.maxTokens
	}
	params := buildMessageParams(req, c.resolveModel(req.Model))
	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return agent.Message{}, wrapHTTPError(err)
	}
	return toAgentMessage(msg.Content), nil
}

func buildMessageParams(req agent.Request, model anthropic.Model) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	if text := strings.TrimSpace(req.System); text != "" {
		system = append(system, anthropic.TextBlockParam{Text: text})
	}

	var messages []anthropic.MessageParam
	var results []anthropic.ContentBlockParamUnion
	flushResults := func() {
		if len(results) > 0 {
			messages = append(messages, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, msg := range req.Messages {
		if msg.Role == agent.RoleTool {
			results = append(results, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError))
			continue
		}
		flushResults()

		text := strings.TrimSpace(msg.Content)
		switch msg.Role {
		case agent.RoleSystem:
			if text != "" {
				system = append(system, anthropic.TextBlockParam{Text: text})
			}
		case agent.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, toolInput(call.Arguments), call.Name))
			}
			if len(blocks) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			if text != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		}
	}
	flushResults()

	params := anthropic.MessageNewParams{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = toTools(req.Tools)
	}
	return params
}

func toTools(specs []agent.ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			continue
		}
		schema := anthropic.ToolInputSchemaParam{
			Properties: spec.Parameters["properties"],
			Required:   requiredFields(spec.Parameters["required"]),
		}
		tool := anthropic.ToolParam{
			Name:        name,
			InputSchema: schema,
		}
		if desc := strings.TrimSpace(spec.Description); desc != "" {
			tool.Description = anthropic.String(desc)
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return tools
}

func requiredFields(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toolInput(args json.RawMessage) any {
	if len(strings.TrimSpace(string(args))) == 0 {
		return map[string]any{}
	}
	return args
}

func toAgentMessage(blocks []anthropic.ContentBlockUnion) agent.Message {
	msg := agent.Message{Role: agent.RoleAssistant}
	var sb strings.Builder
	for _, block := range blocks {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			sb.WriteString(v.Text)
		case anthropic.ToolUseBlock:
			args := v.Input
			if len(strings.TrimSpace(string(args))) == 0 {
				args = json.RawMessage("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, agent.ToolCall{ID: v.ID, Name: v.Name, Arguments: args})
		}
	}
	msg.Content = strings.TrimSpace(sb.String())
	return msg
}

func wrapHTTPError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		if raw := strings.TrimSpace(apiErr.RawJSON()); raw != "" {
			return fmt.Errorf("http_%d: %s", apiErr.StatusCode, raw)
		}
		return fmt.Errorf("http_%d: %v", apiErr.StatusCode, err)
	}
	return err
}
