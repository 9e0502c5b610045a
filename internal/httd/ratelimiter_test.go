package httd

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func compileFor(t *testing.T, route string, params map[string]string) CompiledEndpoint {
	t.Helper()
	ep := NewEndpoint(MethodGet, route)
	c, err := Compile(ep, nil, params)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return c
}

func TestRateLimiterAcquireAndReleaseRoundTrip(t *testing.T) {
	r := NewRateLimiter()
	ep := compileFor(t, "/guilds/{guild.id}", map[string]string{"guild.id": "1"})

	lease, err := r.Acquire(context.Background(), ep)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	lease.Release()

	// a second acquire against the same bucket must not block now the
	// first lease is released.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := r.Acquire(ctx, ep); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
}

func TestRateLimiterAdoptsServerBucketHeader(t *testing.T) {
	r := NewRateLimiter()
	ep := compileFor(t, "/guilds/{guild.id}/channels", map[string]string{"guild.id": "1"})

	lease, err := r.Acquire(context.Background(), ep)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	resp := &http.Response{Header: http.Header{}, StatusCode: http.StatusOK}
	resp.Header.Set("X-RateLimit-Bucket", "abc")
	resp.Header.Set("X-RateLimit-Limit", "5")
	resp.Header.Set("X-RateLimit-Remaining", "4")
	if rlErr := r.Update(lease, resp); rlErr != nil {
		t.Fatalf("unexpected rate-limit error: %v", rlErr)
	}
	lease.Release()

	if got := r.routeToBucket[lease.routeKey]; got == "" {
		t.Fatalf("expected the route key to learn a bucket mapping")
	}
}

// TestRateLimiterMergeUpdatesCanonicalBucket covers two routes that turn
// out to share a server-assigned bucket: the second route's provisional
// bucket state is discarded into the first's already-canonical bucket, and
// the header-derived counters from that same response must land on the
// canonical bucket rather than the discarded provisional one.
func TestRateLimiterMergeUpdatesCanonicalBucket(t *testing.T) {
	r := NewRateLimiter()
	epA := compileFor(t, "/guilds/{guild.id}/channels", map[string]string{"guild.id": "1"})
	epB := compileFor(t, "/guilds/{guild.id}/roles", map[string]string{"guild.id": "1"})

	leaseA, err := r.Acquire(context.Background(), epA)
	if err != nil {
		t.Fatalf("acquire A: %v", err)
	}
	respA := &http.Response{Header: http.Header{}, StatusCode: http.StatusOK}
	respA.Header.Set("X-RateLimit-Bucket", "shared")
	respA.Header.Set("X-RateLimit-Limit", "5")
	respA.Header.Set("X-RateLimit-Remaining", "5")
	if rlErr := r.Update(leaseA, respA); rlErr != nil {
		t.Fatalf("update A: %v", rlErr)
	}
	leaseA.Release()

	leaseB, err := r.Acquire(context.Background(), epB)
	if err != nil {
		t.Fatalf("acquire B: %v", err)
	}
	respB := &http.Response{Header: http.Header{}, StatusCode: http.StatusOK}
	respB.Header.Set("X-RateLimit-Bucket", "shared")
	respB.Header.Set("X-RateLimit-Limit", "5")
	respB.Header.Set("X-RateLimit-Remaining", "0")
	respB.Header.Set("X-RateLimit-Reset-After", "60")
	if rlErr := r.Update(leaseB, respB); rlErr != nil {
		t.Fatalf("update B: %v", rlErr)
	}
	leaseB.Release()

	canonicalKey := r.routeToBucket[leaseB.routeKey]
	canonical, ok := r.buckets[canonicalKey]
	if !ok {
		t.Fatalf("expected a canonical bucket under %q", canonicalKey)
	}
	if canonical.remaining != 0 {
		t.Fatalf("got remaining=%d want 0 (route B's update must land on the shared bucket)", canonical.remaining)
	}

	// A third acquire against the shared bucket must now observe the
	// exhausted state learned from route B, not the stale "remaining: 5"
	// left behind on route A's now-discarded provisional object.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.Acquire(ctx, epA); err == nil {
		t.Fatalf("expected the shared bucket's exhausted state to block a further acquire")
	}
}

func TestRateLimiterTooManyRequestsReturnsError(t *testing.T) {
	r := NewRateLimiter()
	ep := compileFor(t, "/guilds/{guild.id}", map[string]string{"guild.id": "1"})

	lease, err := r.Acquire(context.Background(), ep)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	resp := &http.Response{Header: http.Header{}, StatusCode: http.StatusTooManyRequests}
	resp.Header.Set("X-RateLimit-Reset-After", "0.01")
	if rlErr := r.Update(lease, resp); rlErr == nil {
		t.Fatalf("expected a rate-limit error on 429")
	}
	lease.Release()
}

func TestRateLimiterGlobalLimitBlocksOtherBuckets(t *testing.T) {
	r := NewRateLimiter()
	epA := compileFor(t, "/guilds/{guild.id}", map[string]string{"guild.id": "1"})
	epB := compileFor(t, "/channels/{channel.id}", map[string]string{"channel.id": "2"})

	leaseA, err := r.Acquire(context.Background(), epA)
	if err != nil {
		t.Fatalf("acquire A: %v", err)
	}
	resp := &http.Response{Header: http.Header{}, StatusCode: http.StatusTooManyRequests}
	resp.Header.Set("X-RateLimit-Global", "true")
	resp.Header.Set("X-RateLimit-Reset-After", "0.05")
	_ = r.Update(leaseA, resp)
	leaseA.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := r.Acquire(ctx, epB); err == nil {
		t.Fatalf("expected a global limit to block an unrelated bucket")
	}
}
