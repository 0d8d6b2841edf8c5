package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestRetryStopsAfterSuccess(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(3, time.Millisecond)
	calls := 0
	err := p.Do(func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(2, time.Millisecond)
	calls := 0
	sentinel := errors.New("still failing")
	err := p.Do(func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Do = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(2, time.Minute)
	boom := errors.New("boom")
	cb.OnError(boom)
	if !cb.Allow() {
		t.Fatal("breaker opened below threshold")
	}
	cb.OnError(boom)
	if cb.Allow() {
		t.Fatal("breaker stayed closed at threshold")
	}
}

func TestBreakerReadmitsAfterCooldown(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.OnError(errors.New("boom"))
	if cb.Allow() {
		t.Fatal("breaker should be open")
	}
	time.Sleep(20 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("breaker did not re-admit after cooldown")
	}
}

func TestBreakerResetOnSuccess(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(1, time.Minute)
	cb.OnError(errors.New("boom"))
	cb.OnSuccess()
	if !cb.Allow() {
		t.Fatal("success did not reset the breaker")
	}
	cb.OnError(nil)
	if !cb.Allow() {
		t.Fatal("nil error counted as a failure")
	}
}

func TestDoWithAttemptReportsAttemptNumber(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(2, time.Millisecond)
	var seen []int
	_ = p.DoWithAttempt(func(attempt int) error {
		seen = append(seen, attempt)
		return errors.New("always")
	})
	if len(seen) != 3 || seen[0] != 0 || seen[2] != 2 {
		t.Fatalf("attempts = %v", seen)
	}
}
