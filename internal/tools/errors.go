package tools

import (
	"errors"
	"fmt"

	"finsight/internal/agent"
)

// ErrRegistryFrozen 在冻结后继续注册时返回。
var ErrRegistryFrozen = errors.New("tool registry is frozen")

type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// InvalidArgumentsError 表示参数缺失、类型不符或取值非法。
// handler 也可以直接返回它，registry 会补上 Tool。
type InvalidArgumentsError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	switch {
	case e.Field != "" && e.Tool != "":
		return fmt.Sprintf("invalid arguments for %s: %s: %s", e.Tool, e.Field, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid arguments: %s: %s", e.Field, e.Reason)
	case e.Tool != "":
		return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
	default:
		return "invalid arguments: " + e.Reason
	}
}

// InvalidArgument 供 handler 报告单个字段的非法取值。
func InvalidArgument(field, format string, args ...any) error {
	return &InvalidArgumentsError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ToolExecutionError 包装 handler 失败、panic 与超时。
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// Kind 返回软错误类别名；无法识别的错误按执行失败处理。
func Kind(err error) string {
	var unknown *UnknownToolError
	if errors.As(err, &unknown) {
		return agent.ErrKindUnknownTool
	}
	var invalid *InvalidArgumentsError
	if errors.As(err, &invalid) {
		return agent.ErrKindInvalidArguments
	}
	return agent.ErrKindToolExecution
}
