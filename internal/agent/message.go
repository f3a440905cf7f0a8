package agent

import (
	"encoding/json"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolCall 是模型发出的一次工具调用请求，ID 由模型响应生成。
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message 是对话中的单条消息。
// ToolCalls 仅出现在 assistant 消息上；ToolCallID/IsError/Sources 仅出现在 tool 消息上。
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
	Sources    []string   `json:"sources,omitempty"`
}

// HasToolCalls 判断 assistant 消息是否携带工具调用。
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// Clone 返回深拷贝，避免调用方与引擎共享底层切片。
func (m Message) Clone() Message {
	out := m
	if len(m.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, call := range m.ToolCalls {
			out.ToolCalls[i] = call
			if len(call.Arguments) > 0 {
				out.ToolCalls[i].Arguments = append(json.RawMessage(nil), call.Arguments...)
			}
		}
	}
	if len(m.Sources) > 0 {
		out.Sources = append([]string(nil), m.Sources...)
	}
	return out
}

// CloneMessages 拷贝整段历史。
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Clone()
	}
	return out
}

// ValidateHistory 校验 tool 消息与前一条 assistant 消息的 tool_calls 一一对应。
func ValidateHistory(msgs []Message) error {
	var pending map[string]bool
	for i, msg := range msgs {
		switch msg.Role {
		case RoleTool:
			if pending == nil {
				return fmt.Errorf("message[%d]: tool result without preceding tool call", i)
			}
			if !pending[msg.ToolCallID] {
				return fmt.Errorf("message[%d]: tool result %q does not match a pending tool call", i, msg.ToolCallID)
			}
			delete(pending, msg.ToolCallID)
		case RoleAssistant:
			if len(pending) > 0 {
				return fmt.Errorf("message[%d]: %d tool call(s) left without results", i, len(pending))
			}
			pending = nil
			if len(msg.ToolCalls) > 0 {
				pending = make(map[string]bool, len(msg.ToolCalls))
				for _, call := range msg.ToolCalls {
					pending[call.ID] = true
				}
			}
		default:
			if len(pending) > 0 {
				return fmt.Errorf("message[%d]: %d tool call(s) left without results", i, len(pending))
			}
			pending = nil
		}
	}
	return nil
}

// Conversation 过滤出面向用户展示的 user/assistant 文本消息。
func Conversation(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			out = append(out, msg)
		case RoleAssistant:
			if msg.Content != "" {
				out = append(out, msg)
			}
		}
	}
	return out
}
