package httd

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nyxcord/nyxcord/internal/nyxerr"
)

// bucketState is the mutable per-bucket rate-limit record. remaining
// defaults to 1 (optimistic: assume one request is permitted until the
// server says otherwise) and limit defaults to -1 (unknown).
type bucketState struct {
	identifier string
	limit      int
	remaining  int
	resetAt    time.Time
	sem        chan struct{} // width-1 semaphore
}

func newBucketState() *bucketState {
	return &bucketState{limit: -1, remaining: 1, sem: make(chan struct{}, 1)}
}

// RateLimiter implements the two-level route-key/bucket-key admission
// scheme: a route key is stable before any response is seen; a bucket key
// is learned from the server's X-RateLimit-Bucket header and may be shared
// by many routes.
type RateLimiter struct {
	mu           sync.Mutex
	globalUntil  time.Time
	routeToBucket map[string]string
	buckets      map[string]*bucketState
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		routeToBucket: map[string]string{},
		buckets:       map[string]*bucketState{},
	}
}

// Lease is held for the duration of one request against one bucket.
type Lease struct {
	routeKey  string
	bucketKey string
	bucket    *bucketState
	released  bool
}

func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	<-l.bucket.sem
}

// Acquire blocks (cancellable via ctx) until admission is granted for the
// given compiled endpoint, then holds that bucket's width-1 semaphore until
// Lease.Release is called. This is the only suspension point in the
// algorithm that holds no lock: the state lock is always dropped before any
// sleep or channel receive.
func (r *RateLimiter) Acquire(ctx context.Context, endpoint CompiledEndpoint) (*Lease, error) {
	routeKey := endpoint.RateLimitKey("")

	for {
		r.mu.Lock()
		bucketKey := routeKey
		if bk, ok := r.routeToBucket[routeKey]; ok {
			bucketKey = bk
		}
		bucket, ok := r.buckets[bucketKey]
		if !ok {
			bucket = newBucketState()
			r.buckets[bucketKey] = bucket
		}

		now := time.Now()
		waitUntil := time.Time{}
		if r.globalUntil.After(now) {
			waitUntil = r.globalUntil
		}
		if bucket.remaining <= 0 && bucket.resetAt.After(now) && bucket.resetAt.After(waitUntil) {
			waitUntil = bucket.resetAt
		}
		r.mu.Unlock()

		if !waitUntil.IsZero() {
			if err := sleepUntil(ctx, waitUntil); err != nil {
				return nil, err
			}
			continue
		}

		select {
		case bucket.sem <- struct{}{}:
			return &Lease{routeKey: routeKey, bucketKey: bucketKey, bucket: bucket}, nil
		case <-ctx.Done():
			return nil, nyxerr.FromState(nyxerr.NewClosed())
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

// Update applies response headers (or nil on transport failure) to the
// bucket the lease was acquired against. It returns a *nyxerr.Err when the
// response was a 429; nil otherwise.
func (r *RateLimiter) Update(lease *Lease, resp *http.Response) *nyxerr.Err {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := lease.bucket
	now := time.Now()

	if resp == nil {
		return nil
	}

	if bucketID := resp.Header.Get("X-RateLimit-Bucket"); bucketID != "" {
		target := bucketID
		majorParams := majorParamsSuffix(lease.routeKey)
		if majorParams != "" {
			target = bucketID + ":" + majorParams
		}

		r.routeToBucket[lease.routeKey] = target

		if lease.bucketKey != target {
			if existing, exists := r.buckets[target]; !exists {
				bucket.identifier = bucketID
				r.buckets[target] = bucket
			} else {
				// target already has state; provisional bucket state (and
				// any remaining counters learned under it) is discarded,
				// per the reference implementation's deliberate behavior.
				// The header-derived counters below must land on the
				// canonical bucket so future Acquire calls under target
				// observe them; lease.bucket is left untouched since its
				// semaphore slot is what this lease's Release call drains.
				bucket = existing
			}
			delete(r.buckets, lease.bucketKey)
			lease.bucketKey = target
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header)
		isGlobal := resp.Header.Get("X-RateLimit-Global") == "true"
		if isGlobal {
			until := now.Add(retryAfter)
			if until.After(r.globalUntil) {
				r.globalUntil = until
			}
		} else {
			bucket.remaining = 0
			bucket.resetAt = now.Add(retryAfter)
		}
		return nyxerr.FromRateLimit(&nyxerr.RateLimitError{
			RetryAfter: retryAfter,
			Bucket:     bucket.identifier,
			Global:     isGlobal,
		})
	}

	if limit, err := parseIntHeader(resp.Header, "X-RateLimit-Limit"); err == nil {
		bucket.limit = limit
	}
	if remaining, err := parseIntHeader(resp.Header, "X-RateLimit-Remaining"); err == nil {
		bucket.remaining = remaining
	} else {
		bucket.remaining--
	}
	if resetAfter := resp.Header.Get("X-RateLimit-Reset-After"); resetAfter != "" {
		if secs, err := strconv.ParseFloat(resetAfter, 64); err == nil {
			bucket.resetAt = now.Add(durationFromSeconds(secs))
		}
	}

	return nil
}

// majorParamsSuffix recovers the "name=value:name=value" suffix already
// embedded in a route key of the form "METHOD:template:majorparams".
func majorParamsSuffix(routeKey string) string {
	parts := strings.SplitN(routeKey, ":", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

func parseIntHeader(h http.Header, name string) (int, error) {
	v := h.Get(name)
	if v == "" {
		return 0, strconv.ErrSyntax
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// parseRetryAfter prefers X-RateLimit-Reset-After over Retry-After, both
// expressed as fractional seconds, matching the reference implementation.
func parseRetryAfter(h http.Header) time.Duration {
	if v := h.Get("X-RateLimit-Reset-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return durationFromSeconds(secs)
		}
	}
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return durationFromSeconds(secs)
		}
	}
	return time.Second
}

func durationFromSeconds(secs float64) time.Duration {
	whole, frac := math.Modf(secs)
	return time.Duration(whole)*time.Second + time.Duration(frac*float64(time.Second))
}
