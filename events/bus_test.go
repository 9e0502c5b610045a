package events

import (
	"context"
	"testing"
	"time"

	"github.com/nyxcord/nyxcord/gateway"
)

func TestBusPublishDeliversToSubscriber(t *testing.T) {
	b := newBus(2)
	c := b.subscribe()
	defer c.Close()

	b.publish(gateway.Dispatch{Kind: gateway.EventReady})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, err := c.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if d.Kind != gateway.EventReady {
		t.Fatalf("got %v", d.Kind)
	}
}

func TestBusDropsOldestWhenSubscriberLags(t *testing.T) {
	b := newBus(1)
	c := b.subscribe()
	defer c.Close()

	// capacity 1: the first publish fills the buffer, the second must not
	// block and should drain-then-send the newest instead.
	b.publish(gateway.Dispatch{Kind: gateway.EventReady, Sequence: 1})
	b.publish(gateway.Dispatch{Kind: gateway.EventResumed, Sequence: 2})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, err := c.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if d.Kind != gateway.EventResumed || d.Sequence != 2 {
		t.Fatalf("got %+v want the newest dispatch to survive the drain", d)
	}
}

func TestBusCloseClosesAllSubscribers(t *testing.T) {
	b := newBus(2)
	c := b.subscribe()

	b.close()

	if _, err := c.Next(context.Background()); err == nil {
		t.Fatalf("expected closed bus to unblock subscribers with an error")
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	b := newBus(2)
	c := b.subscribe()
	c.Close()

	// publishing after unsubscribe must not panic on a closed channel.
	b.publish(gateway.Dispatch{Kind: gateway.EventReady})
}

func TestCollectorNextKindSkipsOthers(t *testing.T) {
	b := newBus(4)
	c := b.subscribe()
	defer c.Close()

	b.publish(gateway.Dispatch{Kind: gateway.EventTypingStart})
	b.publish(gateway.Dispatch{Kind: gateway.EventMessageCreate})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, err := c.NextKind(ctx, gateway.EventMessageCreate)
	if err != nil {
		t.Fatalf("nextkind: %v", err)
	}
	if d.Kind != gateway.EventMessageCreate {
		t.Fatalf("got %v", d.Kind)
	}
}
