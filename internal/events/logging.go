package events

import (
	"io"
	"sync"

	"finsight/internal/logger"
)

// DefaultJournalPath 进度事件日志的默认路径。
const DefaultJournalPath = "logs/events.log"

// Journal 订阅总线并把每个进度事件写成一行日志，用于事后排查一次运行的工具时序。
type Journal struct {
	bus  *Bus
	sub  <-chan Event
	out  *logger.LogEntry
	file io.Closer
	done chan struct{}
	once sync.Once
}

// OpenJournal 把事件写入 path（为空时使用 DefaultJournalPath）。
func OpenJournal(bus *Bus, path string) *Journal {
	if path == "" {
		path = DefaultJournalPath
	}
	out, file := newFileLogger("events", path)
	j := StartJournal(bus, out)
	j.file = file
	return j
}

// StartJournal 开始把事件写入 out。
func StartJournal(bus *Bus, out *logger.LogEntry) *Journal {
	j := &Journal{bus: bus, out: out, done: make(chan struct{})}
	j.sub = bus.Subscribe()
	go j.loop()
	return j
}

func newFileLogger(component, path string) (*logger.LogEntry, io.Closer) {
	entry, closer, _, err := logger.SetupComponentFile(component, path)
	if err != nil {
		log.Warnf("failed to set up %s log file (%s): %v", component, path, err)
		return logger.Named(component), nil
	}
	return entry, closer
}

func (j *Journal) loop() {
	defer close(j.done)
	for evt := range j.sub {
		entry := j.out.WithField("run", evt.RunID).WithField("iter", evt.Iteration)
		if evt.Tool != "" {
			entry = entry.WithField("tool", evt.Tool).WithField("call", evt.ToolCallID)
		}
		if evt.Status != "" {
			entry = entry.WithField("status", evt.Status)
		}
		if evt.Duration > 0 {
			entry = entry.WithField("duration_ms", evt.Duration.Milliseconds())
		}
		if evt.Detail != "" {
			entry = entry.WithField("detail", logger.Preview(logger.Sanitize(evt.Detail), 200))
		}
		entry.Info(string(evt.Type))
	}
}

// Close 取消订阅并等待已收到的事件写完。
func (j *Journal) Close() error {
	var err error
	j.once.Do(func() {
		j.bus.Unsubscribe(j.sub)
		<-j.done
		if j.file != nil {
			err = j.file.Close()
		}
	})
	return err
}
