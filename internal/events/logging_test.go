package events

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"finsight/internal/logger"

	"github.com/sirupsen/logrus"
)

func TestJournalWritesOneLinePerEvent(t *testing.T) {
	buf := &bytes.Buffer{}
	bus := NewBus()
	defer bus.Close()

	j := StartJournal(bus, newBufferLogger(buf))
	bus.Publish(Event{Type: EventModelRequested, RunID: "r1", Iteration: 1})
	bus.Publish(Event{Type: EventToolCompleted, RunID: "r1", Iteration: 1, Tool: "get_stock_price", ToolCallID: "c1", Status: "ok", Duration: 1500 * time.Millisecond})
	bus.Publish(Event{Type: EventLoopFailed, RunID: "r1", Iteration: 2, Detail: "http_503:\nupstream"})
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "model.requested") || !strings.Contains(lines[0], "run=r1") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	for _, want := range []string{"tool.completed", "tool=get_stock_price", "status=ok", "duration_ms=1500"} {
		if !strings.Contains(lines[1], want) {
			t.Fatalf("second line %q missing %q", lines[1], want)
		}
	}
	if !strings.Contains(lines[2], `http_503:\nupstream`) {
		t.Fatalf("detail should be sanitized onto one line, got %q", lines[2])
	}
}

func TestJournalStopsWhenBusCloses(t *testing.T) {
	bus := NewBus()
	j := StartJournal(bus, newBufferLogger(&bytes.Buffer{}))
	bus.Close()

	done := make(chan struct{})
	go func() {
		_ = j.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("journal did not stop after bus close")
	}
}

func newBufferLogger(buf *bytes.Buffer) *logger.LogEntry {
	l := logrus.New()
	l.SetFormatter(logger.PlainFormatter{})
	l.SetOutput(buf)
	return logrus.NewEntry(l)
}
