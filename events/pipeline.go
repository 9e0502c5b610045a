// Package events implements the dispatch pipeline sitting between the
// gateway session and application subscribers: a single ordered worker
// invoking registered handlers, plus a lossy fan-out bus for collectors.
//
// Close does not wait for handler goroutines started under the concurrent
// strategy, so a trailing handler may still run after Close returns. A
// collector that falls behind loses events silently; the lag is not reported.
package events

import (
	"context"
	"sync"

	"github.com/nyxcord/nyxcord/gateway"
	"github.com/nyxcord/nyxcord/internal/nyxerr"
)

// HandlerStrategy controls how registered handlers are invoked relative to
// each other and to the worker loop.
type HandlerStrategy int

const (
	// Sequential runs handlers one at a time, each awaited before the next;
	// end-to-end ordering is preserved.
	Sequential HandlerStrategy = iota
	// Concurrent dispatches each handler to its own goroutine; the worker
	// does not wait, so ordering across handlers is not guaranteed.
	Concurrent
)

// Handler observes one dispatch. Panics are recovered by the worker and
// logged; they never abort the pipeline.
type Handler func(ctx context.Context, d gateway.Dispatch)

// Logger is the minimal pluggable logging seam the pipeline accepts.
type Logger interface {
	Debug(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(...interface{}) {}
func (noopLogger) Warn(...interface{})  {}
func (noopLogger) Error(...interface{}) {}

// Config configures a Pipeline.
type Config struct {
	Strategy      HandlerStrategy
	ListenersSize int
	Logger        Logger
}

func (c *Config) setDefaults() {
	if c.ListenersSize == 0 {
		c.ListenersSize = 512
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}

// Pipeline drains a gateway session's dispatch channel, invokes registered
// handlers, and republishes each dispatch to a lossy broadcast bus that
// feeds Collectors.
type Pipeline struct {
	cfg Config

	mu       sync.RWMutex
	handlers []Handler

	bus *bus

	shutdown  chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

func NewPipeline(cfg Config) *Pipeline {
	cfg.setDefaults()
	return &Pipeline{
		cfg:      cfg,
		bus:      newBus(cfg.ListenersSize),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// AddHandler registers a handler; it runs on every future dispatch.
func (p *Pipeline) AddHandler(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Run drains ingest until it closes (gateway session ended) or shutdown is
// signaled. The worker completes any in-progress dispatch before exiting.
func (p *Pipeline) Run(ctx context.Context, ingest <-chan gateway.Dispatch) {
	defer close(p.done)
	for {
		select {
		case d, ok := <-ingest:
			if !ok {
				return
			}
			p.deliver(ctx, d)
		case <-p.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) deliver(ctx context.Context, d gateway.Dispatch) {
	p.bus.publish(d)

	p.mu.RLock()
	handlers := append([]Handler(nil), p.handlers...)
	p.mu.RUnlock()

	switch p.cfg.Strategy {
	case Sequential:
		for _, h := range handlers {
			p.invoke(ctx, h, d)
		}
	case Concurrent:
		for _, h := range handlers {
			h := h
			go p.invoke(ctx, h, d)
		}
	}
}

func (p *Pipeline) invoke(ctx context.Context, h Handler, d gateway.Dispatch) {
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.Error("events: handler panic:", r)
		}
	}()
	h(ctx, d)
}

// Close signals shutdown; Collectors and the worker wake and exit.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		close(p.shutdown)
		p.bus.close()
	})
}

// Done reports when the worker has exited.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Subscribe returns a Collector over the pipeline's listener bus.
func (p *Pipeline) Subscribe() *Collector {
	return p.bus.subscribe()
}

// errClosed is returned by Collector operations after pipeline shutdown.
var errClosed = nyxerr.FromState(nyxerr.NewClosed())
