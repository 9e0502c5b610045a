package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/nyxcord/nyxcord/internal/nyxerr"
)

// CommandKind distinguishes outbound frames the limiter must never starve
// (Internal: heartbeat, identify, resume) from application-issued ones.
type CommandKind int

const (
	CommandNormal CommandKind = iota
	CommandInternal
)

// OutboundLimiter is a sliding 60-second window over outbound gateway
// commands, with a reserved allotment for internal traffic so a chatty
// application can never starve the heartbeat.
type OutboundLimiter struct {
	mu          sync.Mutex
	perMinute   int
	reserved    int
	windowStart time.Time
	remaining   int
}

func NewOutboundLimiter(perMinute, reserved int) *OutboundLimiter {
	return &OutboundLimiter{
		perMinute:   perMinute,
		reserved:    reserved,
		windowStart: time.Now(),
		remaining:   perMinute,
	}
}

// Acquire blocks until a slot of the given kind is admitted, or ctx is done.
func (l *OutboundLimiter) Acquire(ctx context.Context, kind CommandKind) error {
	for {
		l.mu.Lock()
		now := time.Now()
		if now.Sub(l.windowStart) >= time.Minute {
			l.windowStart = now
			l.remaining = l.perMinute
		}

		blocked := false
		switch kind {
		case CommandNormal:
			blocked = l.remaining <= l.reserved
		case CommandInternal:
			blocked = l.remaining <= 0
		}

		if !blocked {
			l.remaining--
			l.mu.Unlock()
			return nil
		}

		rollover := l.windowStart.Add(time.Minute)
		l.mu.Unlock()

		if err := sleepUntil(ctx, rollover); err != nil {
			return err
		}
	}
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nyxerr.FromState(nyxerr.NewClosed())
	}
}
