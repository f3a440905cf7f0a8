package logger

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LLMMessage 表示一次请求中的对话消息。
type LLMMessage struct {
	Role    string
	Content string
}

// LLMLogger 负责输出与 LLM 交互的请求、响应与错误信息。
type LLMLogger interface {
	Request(model string, messages []LLMMessage, attempt int)
	Response(model string, content string, toolCalls int, attempt int)
	Error(model string, err error, attempt int)
}

var (
	llmMu  sync.RWMutex
	llmLog LLMLogger = NewLLMLogger(nil)
)

// GlobalLLMLogger 返回全局唯一的 LLM 日志实例。
func GlobalLLMLogger() LLMLogger {
	llmMu.RLock()
	defer llmMu.RUnlock()
	return llmLog
}

// SetGlobalLLMLogger 覆盖全局 LLM 日志实例，传入 nil 将重置为默认实现。
func SetGlobalLLMLogger(l LLMLogger) {
	if l == nil {
		l = NewLLMLogger(nil)
	}
	llmMu.Lock()
	llmLog = l
	llmMu.Unlock()
}

// SetupLLMFile 把 LLM 日志写入独立文件（默认 logs/llm.log）。
func SetupLLMFile(logPath string) (io.Closer, string, error) {
	if logPath == "" {
		logPath = DefaultLLMLogPath
	}
	entry, closer, resolved, err := SetupComponentFile("llm", logPath)
	if err != nil {
		return nil, "", err
	}
	SetGlobalLLMLogger(&StdLLMLogger{logger: entry})
	return closer, resolved, nil
}

// StdLLMLogger 使用 logrus 输出日志。
type StdLLMLogger struct {
	logger *logrus.Entry
}

// NewLLMLogger 构造默认的 LLM 日志记录器。
func NewLLMLogger(l *Logger) *StdLLMLogger {
	if l == nil {
		l = root()
	}
	return &StdLLMLogger{logger: logrus.NewEntry(l).WithField("component", "llm")}
}

// Request 记录一次请求的上下文。
func (l *StdLLMLogger) Request(model string, messages []LLMMessage, attempt int) {
	l.printf(logrus.InfoLevel, "-> request attempt=%d model=%s messages=%d", attempt, model, len(messages))
	for i, msg := range messages {
		l.printf(logrus.DebugLevel, "-> message[%d] role=%s content=%s", i, msg.Role, Sanitize(Preview(msg.Content, 400)))
	}
}

// Response 记录一次响应。
func (l *StdLLMLogger) Response(model string, content string, toolCalls int, attempt int) {
	l.printf(logrus.InfoLevel, "<- response attempt=%d model=%s tool_calls=%d text=%s", attempt, model, toolCalls, Sanitize(Preview(content, 400)))
}

// Error 记录请求错误。
func (l *StdLLMLogger) Error(model string, err error, attempt int) {
	l.printf(logrus.ErrorLevel, "!! error attempt=%d model=%s err=%v", attempt, model, err)
}

// NoopLLMLogger 忽略所有日志输出。
type NoopLLMLogger struct{}

func (NoopLLMLogger) Request(string, []LLMMessage, int) {}
func (NoopLLMLogger) Response(string, string, int, int) {}
func (NoopLLMLogger) Error(string, error, int)          {}

// LLMRequest 记录一次 LLM 请求。
func LLMRequest(model string, messages []LLMMessage, attempt int) {
	GlobalLLMLogger().Request(model, messages, attempt)
}

// LLMResponse 记录一次 LLM 响应。
func LLMResponse(model string, content string, toolCalls int, attempt int) {
	GlobalLLMLogger().Response(model, content, toolCalls, attempt)
}

// LLMError 记录请求错误。
func LLMError(model string, err error, attempt int) {
	GlobalLLMLogger().Error(model, err, attempt)
}

func (l *StdLLMLogger) printf(level logrus.Level, format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	if !l.logger.Logger.IsLevelEnabled(level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	entry := l.logger
	if caller := findCaller(); caller != "" {
		entry = entry.WithField("caller", caller)
	}
	entry.Log(level, msg)
}

func findCaller() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.File != "" && !strings.HasSuffix(frame.File, "logger/llm.go") {
			return fmt.Sprintf("%s:%d", shortenFilePath(frame.File), frame.Line)
		}
		if !more {
			break
		}
	}
	return ""
}
