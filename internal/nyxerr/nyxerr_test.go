package nyxerr

import (
	"errors"
	"testing"
	"time"
)

func TestCategoryDispatchesToTheRightLeaf(t *testing.T) {
	err := FromState(NewMissing("token"))
	if err.Category() != State {
		t.Fatalf("got %v want State", err.Category())
	}
	if err.Error() != "state error: missing token" {
		t.Fatalf("got %q", err.Error())
	}
}

func TestUnwrapReturnsLeafError(t *testing.T) {
	leaf := NewNotConnected()
	err := FromState(leaf)
	if !errors.Is(err.Unwrap(), leaf) {
		t.Fatalf("expected Unwrap to return the wrapped leaf error")
	}
}

func TestRateLimitErrorMessageDistinguishesGlobal(t *testing.T) {
	global := FromRateLimit(&RateLimitError{RetryAfter: 2 * time.Second, Global: true})
	if global.Error() != "rate limit error: global, retry after 2s" {
		t.Fatalf("got %q", global.Error())
	}

	bucketed := FromRateLimit(&RateLimitError{RetryAfter: time.Second, Bucket: "abc"})
	if bucketed.Error() != `rate limit error: bucket "abc", retry after 1s` {
		t.Fatalf("got %q", bucketed.Error())
	}
}

func TestInvalidTransitionMessage(t *testing.T) {
	err := FromState(NewInvalidTransition("Idle", "Closing"))
	want := "state error: invalid transition from Idle to Closing"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}

func TestCategoryString(t *testing.T) {
	cases := map[Category]string{
		Transport: "transport",
		Protocol:  "protocol",
		Api:       "api",
		RateLimit: "rate_limit",
		State:     "state",
	}
	for c, want := range cases {
		if got := c.String(); got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
}
