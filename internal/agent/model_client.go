package agent

import (
	"context"
	"errors"
	"strings"

	"finsight/internal/logger"
)

// ToolSpec 描述可供模型调用的工具定义，Parameters 为 JSON Schema object。
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request 代表一次模型调用：固定的系统指令 + 完整历史 + 工具表。
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolSpec
	Temperature float64
	MaxTokens   int64
}

// ModelClient 定义模型客户端接口。
// 返回的 assistant 消息可以同时包含文本与零到多个 ToolCall。
type ModelClient interface {
	Complete(ctx context.Context, req Request) (Message, error)
}

// ModelClientFunc 便于在测试与适配层中用函数实现 ModelClient。
type ModelClientFunc func(ctx context.Context, req Request) (Message, error)

func (f ModelClientFunc) Complete(ctx context.Context, req Request) (Message, error) {
	return f(ctx, req)
}

// EchoClient is a fallback when no API key is available.
type EchoClient struct {
	Prefix string
}

func (c EchoClient) Complete(_ context.Context, req Request) (Message, error) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		msg := req.Messages[i]
		if msg.Role == RoleUser {
			return Message{Role: RoleAssistant, Content: c.Prefix + msg.Content}, nil
		}
	}
	return Message{}, errors.New("no messages to echo")
}

// ToLLMMessages 将内部消息转换为日志友好的结构。
func ToLLMMessages(msgs []Message) []logger.LLMMessage {
	out := make([]logger.LLMMessage, 0, len(msgs))
	for _, msg := range msgs {
		content := msg.Content
		if len(msg.ToolCalls) > 0 {
			names := make([]string, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				names = append(names, call.Name+"#"+call.ID)
			}
			content = strings.TrimSpace(content + " [tool_calls: " + strings.Join(names, ", ") + "]")
		}
		if msg.ToolCallID != "" {
			content = "[" + msg.ToolCallID + "] " + content
		}
		out = append(out, logger.LLMMessage{
			Role:    string(msg.Role),
			Content: content,
		})
	}
	return out
}
