package tools

import (
	"context"
	"encoding/json"
	"time"

	"finsight/internal/agent"
)

// Param 描述工具的单个参数，由 schema 反射得到。
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Output 是 handler 的正常返回。Sources 只由知识库工具填写。
type Output struct {
	Content string
	Sources []string
}

// Handler 是具体工具的执行入口，args 为模型给出的 JSON object。
type Handler func(ctx context.Context, args json.RawMessage) (Output, error)

// Definition 是注册到 Registry 的工具定义，注册后不可修改。
type Definition struct {
	Name        string
	Description string
	Params      []Param
	Schema      map[string]any
	Handler     Handler
}

// Spec 返回发送给模型的工具描述。
func (d Definition) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.Schema,
	}
}

// Result 是单次工具调用的结果，Kind 仅在 IsError 时为错误类别名。
type Result struct {
	CallID   string
	Tool     string
	Content  string
	IsError  bool
	Kind     string
	Sources  []string
	Duration time.Duration
}

// Outcome 转换为 agent 循环使用的结构。
func (r Result) Outcome() agent.ToolOutcome {
	return agent.ToolOutcome{
		Content: r.Content,
		IsError: r.IsError,
		Kind:    r.Kind,
		Sources: r.Sources,
	}
}
