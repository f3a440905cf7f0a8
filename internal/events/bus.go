package events

import (
	"sync"

	"finsight/internal/logger"
)

var log = logger.Named("events")

// Bus 是简单的进度事件 pub-sub：慢订阅者会丢事件而不是阻塞 agent 循环。
type Bus struct {
	mu      sync.Mutex
	subs    []chan Event
	closed  bool
	dropped int
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, 32)
	b.subs = append(b.subs, ch)
	return ch
}

// Unsubscribe 关闭并移除订阅通道。
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			close(ch)
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped++
			log.WithField("type", evt.Type).Debugf("dropped event for slow subscriber (total=%d)", b.dropped)
		}
	}
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.closed = true
}
