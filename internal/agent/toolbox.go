package agent

import "context"

// ToolOutcome 是工具执行后的结果，Kind 仅在 IsError 时填写软错误类别。
type ToolOutcome struct {
	Content string
	IsError bool
	Kind    string
	Sources []string
}

// Toolbox 是循环依赖的工具注册表视图。
// Execute 不返回 Go error：未知工具、参数错误、执行失败都折叠成 IsError 结果。
type Toolbox interface {
	Specs() []ToolSpec
	Execute(ctx context.Context, call ToolCall) ToolOutcome
}

// freezer 由支持冻结的注册表实现，NewLoop 会在构造完成时调用。
type freezer interface {
	Freeze()
}
