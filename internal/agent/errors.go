package agent

import (
	"errors"
	"fmt"
)

// 软错误类别：以 tool 结果的形式回到模型，循环继续。
const (
	ErrKindUnknownTool      = "UnknownToolError"
	ErrKindInvalidArguments = "InvalidArgumentsError"
	ErrKindToolExecution    = "ToolExecutionError"
)

// ModelInvocationError 表示模型调用本身失败（传输、鉴权、限流、超时）。
// 对当前回合是致命的。
type ModelInvocationError struct {
	Model    string
	Attempts int
	Partial  []Message
	Err      error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model invocation failed (model=%s attempts=%d): %v", e.Model, e.Attempts, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// MaxIterationsExceededError 表示模型往返次数超过上限，Partial 保留已产生的消息。
type MaxIterationsExceededError struct {
	Limit   int
	Partial []Message
}

func (e *MaxIterationsExceededError) Error() string {
	return fmt.Sprintf("agent loop exceeded %d model iterations without a final answer", e.Limit)
}

// IsFatal 判断错误是否属于终止回合的类别。
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var modelErr *ModelInvocationError
	var maxErr *MaxIterationsExceededError
	return errors.As(err, &modelErr) || errors.As(err, &maxErr)
}

// PartialTranscript 取出致命错误携带的部分消息。
func PartialTranscript(err error) []Message {
	var modelErr *ModelInvocationError
	if errors.As(err, &modelErr) {
		return modelErr.Partial
	}
	var maxErr *MaxIterationsExceededError
	if errors.As(err, &maxErr) {
		return maxErr.Partial
	}
	return nil
}

// ErrorKind 返回错误类别名，供 HTTP/TUI 层区分展示。
func ErrorKind(err error) string {
	var modelErr *ModelInvocationError
	if errors.As(err, &modelErr) {
		return "ModelInvocationError"
	}
	var maxErr *MaxIterationsExceededError
	if errors.As(err, &maxErr) {
		return "MaxIterationsExceeded"
	}
	return "InternalError"
}
