package events

import (
	"context"
	"sync"

	"github.com/nyxcord/nyxcord/gateway"
)

// Collector is a subscriber over the pipeline's listener bus. A collector
// that falls behind does not fail: it loses the missed events and resumes
// with the next one delivered.
type Collector struct {
	ch        chan busMsg
	bus       *bus
	closeOnce sync.Once
}

// Next blocks for the next dispatch, or returns an error if ctx is done or
// the pipeline has shut down.
func (c *Collector) Next(ctx context.Context) (gateway.Dispatch, error) {
	select {
	case m, ok := <-c.ch:
		if !ok {
			return gateway.Dispatch{}, errClosed
		}
		return m.d, nil
	case <-ctx.Done():
		return gateway.Dispatch{}, ctx.Err()
	}
}

// NextKind blocks until a dispatch of the given kind arrives, discarding
// everything else in between.
func (c *Collector) NextKind(ctx context.Context, kind gateway.EventKind) (gateway.Dispatch, error) {
	for {
		d, err := c.Next(ctx)
		if err != nil {
			return gateway.Dispatch{}, err
		}
		if d.Kind == kind {
			return d, nil
		}
	}
}

// Close unsubscribes the collector from the bus.
func (c *Collector) Close() {
	c.closeOnce.Do(func() { c.bus.unsubscribe(c) })
}
