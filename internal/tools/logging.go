package tools

import (
	"io"
	"sync"

	"finsight/internal/logger"
)

// DefaultToolsLogPath 工具调用日志的默认路径。
const DefaultToolsLogPath = "logs/tools.log"

var (
	toolsLog           = logger.Named("tools")
	toolsLogConfigured bool
	toolsLogMu         sync.Mutex
	toolsLogCloser     io.Closer
	toolsLogPath       string
)

// SetupToolsLog 配置工具调用专用日志，返回文件 closer 及实际路径。
// 若 logPath 为空，则使用 DefaultToolsLogPath。
// 多次调用只会在首次生效。
func SetupToolsLog(logPath string) (io.Closer, string, error) {
	toolsLogMu.Lock()
	defer toolsLogMu.Unlock()

	if toolsLogConfigured {
		return toolsLogCloser, toolsLogPath, nil
	}
	if logPath == "" {
		logPath = DefaultToolsLogPath
	}

	entry, closer, resolved, err := logger.SetupComponentFile("tools", logPath)
	toolsLogConfigured = true
	toolsLogPath = resolved
	if err != nil {
		return nil, resolved, err
	}
	if entry != nil {
		toolsLog = entry
	}
	toolsLogCloser = closer
	return closer, resolved, nil
}

// CloseToolsLog 关闭工具日志文件句柄（如已初始化）。
func CloseToolsLog() {
	toolsLogMu.Lock()
	defer toolsLogMu.Unlock()
	if toolsLogCloser != nil {
		_ = toolsLogCloser.Close()
		toolsLogCloser = nil
	}
}

func logResult(res Result, args string) {
	toolsLogMu.Lock()
	entry := toolsLog
	toolsLogMu.Unlock()

	status := "ok"
	if res.IsError {
		status = "error"
	}
	fields := logger.Fields{
		"tool":        res.Tool,
		"call_id":     res.CallID,
		"status":      status,
		"duration_ms": res.Duration.Milliseconds(),
		"args":        logger.Sanitize(logger.Preview(args, 200)),
	}
	if res.IsError {
		fields["kind"] = res.Kind
		entry.WithFields(fields).Warnf("tool call failed: %s", logger.Sanitize(logger.Preview(res.Content, 300)))
		return
	}
	entry.WithFields(fields).Infof("tool call completed: %s", logger.Sanitize(logger.Preview(res.Content, 200)))
}
