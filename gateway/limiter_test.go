package gateway

import (
	"context"
	"testing"
	"time"
)

func TestOutboundLimiterAdmitsUpToPerMinute(t *testing.T) {
	l := NewOutboundLimiter(5, 1)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.Acquire(ctx, CommandInternal); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}

	ctx2, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx2, CommandInternal); err == nil {
		t.Fatalf("expected the 6th internal acquire to block past the window")
	}
}

func TestOutboundLimiterReservesSlotsForInternalTraffic(t *testing.T) {
	l := NewOutboundLimiter(3, 1)
	ctx := context.Background()

	// Drain down to the reserved slot with normal traffic.
	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx, CommandNormal); err != nil {
			t.Fatalf("acquire normal %d: %v", i, err)
		}
	}

	ctx2, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx2, CommandNormal); err == nil {
		t.Fatalf("expected normal traffic to be blocked by the reserved allotment")
	}

	if err := l.Acquire(ctx, CommandInternal); err != nil {
		t.Fatalf("expected internal traffic to still have a reserved slot: %v", err)
	}
}

func TestOutboundLimiterCancelReturnsError(t *testing.T) {
	l := NewOutboundLimiter(1, 1)
	ctx := context.Background()

	if err := l.Acquire(ctx, CommandInternal); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Acquire(cancelled, CommandInternal); err == nil {
		t.Fatalf("expected a cancelled context to error out")
	}
}
