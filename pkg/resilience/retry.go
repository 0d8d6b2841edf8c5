package resilience

import "time"

// RetryPolicy bounds re-attempts of a transient operation. Backoff grows
// linearly with the attempt number.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do runs fn until it succeeds or the retry budget is spent, returning the
// last error.
func (r RetryPolicy) Do(fn func() error) error {
	return r.DoWithAttempt(func(int) error { return fn() })
}

// DoWithAttempt is Do with the zero-based attempt number passed to fn.
func (r RetryPolicy) DoWithAttempt(fn func(attempt int) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt >= r.MaxRetries {
			return err
		}
		time.Sleep(r.Backoff * time.Duration(attempt+1))
	}
}
