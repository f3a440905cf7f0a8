package events

import "time"

// EventType 描述 agent 循环对外发布的进度事件类型。
type EventType string

const (
	EventModelRequested EventType = "model.requested"
	EventModelResponded EventType = "model.responded"
	EventToolStarted    EventType = "tool.started"
	EventToolCompleted  EventType = "tool.completed"
	EventLoopDone       EventType = "loop.done"
	EventLoopFailed     EventType = "loop.failed"
)

// Event 是总线上传递的唯一消息格式。
// RunID 区分同一总线上的并发会话；工具相关字段只在 tool.* 事件中填充。
type Event struct {
	Type       EventType
	RunID      string
	Iteration  int
	Tool       string
	ToolCallID string
	Status     string // ok|error
	Detail     string
	Duration   time.Duration
	Timestamp  time.Time
}

// Publisher 由 agent 循环使用；nil 安全的实现见 Bus。
type Publisher interface {
	Publish(evt Event)
}
