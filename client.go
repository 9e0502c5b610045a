package nyxcord

import (
	"context"
	"sync"

	"github.com/nyxcord/nyxcord/cache"
	"github.com/nyxcord/nyxcord/events"
	"github.com/nyxcord/nyxcord/gateway"
	"github.com/nyxcord/nyxcord/internal/httd"
	"github.com/nyxcord/nyxcord/internal/nyxerr"
)

// ClientState is the top-level lifecycle a Client moves through, distinct
// from (and coarser than) the gateway session's own connection state.
type ClientState int

const (
	Idle ClientState = iota
	Opening
	Ready
	Closing
	ClientClosed
)

func (s ClientState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Opening:
		return "Opening"
	case Ready:
		return "Ready"
	case Closing:
		return "Closing"
	case ClientClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Client wires together the REST client, gateway session, cache store, and
// event pipeline, and owns their combined lifecycle.
type Client struct {
	mu    sync.Mutex
	state ClientState

	http     *httd.Client
	gateway  *gateway.Session
	store    *cache.Store
	pipeline *events.Pipeline
	updater  *cache.Updater

	cachePolicy cache.Policy
	updaterDone chan struct{}
}

// Open transitions Idle -> Opening -> Ready: it starts the gateway runner
// and, if the cache policy enables auto-update, wires the cache updater to
// the event pipeline's dispatch bus.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return nyxerr.FromState(nyxerr.NewInvalidTransition(c.state.String(), Opening.String()))
	}
	c.state = Opening
	c.mu.Unlock()

	c.gateway.Open(ctx)
	go c.pipeline.Run(ctx, c.gateway.Dispatches())

	if c.cachePolicy.AutoUpdate {
		collector := c.pipeline.Subscribe()
		c.updater = cache.NewUpdater(c.store, collector)
		c.updaterDone = make(chan struct{})
		go func() {
			defer close(c.updaterDone)
			c.updater.Run(ctx)
		}()
	}

	c.mu.Lock()
	c.state = Ready
	c.mu.Unlock()
	return nil
}

// Close transitions to Closing, tears the subsystems down in wiring order
// (gateway, then pipeline, then the cache updater), and waits
// for the updater goroutine to drain before reaching Closed.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Opening && c.state != Ready {
		from := c.state
		c.mu.Unlock()
		return nyxerr.FromState(nyxerr.NewInvalidTransition(from.String(), Closing.String()))
	}
	c.state = Closing
	c.mu.Unlock()

	gwErr := c.gateway.Close(ctx)
	c.pipeline.Close()
	<-c.pipeline.Done()
	if c.updaterDone != nil {
		<-c.updaterDone
	}

	c.mu.Lock()
	c.state = ClientClosed
	c.mu.Unlock()
	return gwErr
}

// State reports the client's current lifecycle state.
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HTTP returns the wired REST client. Callers compose their own typed
// requests on top of httd.RequestJSON; no endpoint-surface helpers are
// provided here.
func (c *Client) HTTP() *httd.Client { return c.http }

// Gateway returns the wired gateway session.
func (c *Client) Gateway() *gateway.Session { return c.gateway }

// Cache returns the wired cache store.
func (c *Client) Cache() *cache.Store { return c.store }

// Events returns the wired event pipeline, for registering handlers.
func (c *Client) Events() *events.Pipeline { return c.pipeline }

// Collector subscribes a new listener to the event pipeline's bus.
func (c *Client) Collector() *events.Collector { return c.pipeline.Subscribe() }
