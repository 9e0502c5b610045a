package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nyxcord/nyxcord/gateway"
)

func TestPipelineSequentialHandlersRunInOrder(t *testing.T) {
	p := NewPipeline(Config{Strategy: Sequential})
	var mu sync.Mutex
	var order []int

	for i := 0; i < 3; i++ {
		i := i
		p.AddHandler(func(ctx context.Context, d gateway.Dispatch) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	ingest := make(chan gateway.Dispatch, 1)
	ingest <- gateway.Dispatch{Kind: gateway.EventReady}
	close(ingest)

	p.Run(context.Background(), ingest)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("got order %v want [0 1 2]", order)
	}
}

func TestPipelineHandlerPanicDoesNotAbortWorker(t *testing.T) {
	p := NewPipeline(Config{Strategy: Sequential})
	var ran bool
	p.AddHandler(func(ctx context.Context, d gateway.Dispatch) {
		panic("boom")
	})
	p.AddHandler(func(ctx context.Context, d gateway.Dispatch) {
		ran = true
	})

	ingest := make(chan gateway.Dispatch, 1)
	ingest <- gateway.Dispatch{Kind: gateway.EventReady}
	close(ingest)

	p.Run(context.Background(), ingest)

	if !ran {
		t.Fatalf("expected the handler after the panicking one to still run")
	}
}

func TestPipelineSubscriberReceivesDispatch(t *testing.T) {
	p := NewPipeline(Config{Strategy: Sequential, ListenersSize: 4})
	c := p.Subscribe()
	defer c.Close()

	ingest := make(chan gateway.Dispatch, 1)
	ingest <- gateway.Dispatch{Kind: gateway.EventMessageCreate}
	close(ingest)

	go p.Run(context.Background(), ingest)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, err := c.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if d.Kind != gateway.EventMessageCreate {
		t.Fatalf("got %v want MESSAGE_CREATE", d.Kind)
	}
}

func TestPipelineCloseUnblocksSubscribers(t *testing.T) {
	p := NewPipeline(Config{})
	c := p.Subscribe()

	p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.Next(ctx); err == nil {
		t.Fatalf("expected an error once the pipeline is closed")
	}
}
