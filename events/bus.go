package events

import (
	"sync"

	"github.com/nyxcord/nyxcord/gateway"
)

// busMsg wraps a dispatch with whether a collector missed events to reach
// it; the lag marker exists for future diagnostics and is not currently
// surfaced to callers (a lagged collector simply resumes with this message).
type busMsg struct {
	d      gateway.Dispatch
	lagged bool
}

// bus is a lossy fan-out broadcast: every dispatch is offered to every
// subscriber without blocking. A subscriber whose buffer is full has it
// drained and is handed only the newest dispatch, with the lag marker set.
type bus struct {
	mu       sync.Mutex
	capacity int
	subs     map[*Collector]struct{}
	closed   bool
}

func newBus(capacity int) *bus {
	return &bus{capacity: capacity, subs: map[*Collector]struct{}{}}
}

func (b *bus) subscribe() *Collector {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := &Collector{ch: make(chan busMsg, b.capacity), bus: b}
	if b.closed {
		close(c.ch)
		return c
	}
	b.subs[c] = struct{}{}
	return c
}

func (b *bus) publish(d gateway.Dispatch) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.subs {
		select {
		case c.ch <- busMsg{d: d}:
		default:
			drain(c.ch)
			select {
			case c.ch <- busMsg{d: d, lagged: true}:
			default:
			}
		}
	}
}

func drain(ch chan busMsg) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func (b *bus) unsubscribe(c *Collector) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[c]; ok {
		delete(b.subs, c)
		close(c.ch)
	}
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for c := range b.subs {
		close(c.ch)
	}
	b.subs = map[*Collector]struct{}{}
}
