// Package httpretry runs a bounded sequence of HTTP attempts with a fixed
// backoff curve. The caller owns each attempt, so it can record one audit
// row per try.
package httpretry

import (
	"context"
	"net/http"
	"time"
)

// HTTPDoer is the interface for executing HTTP requests.
// *http.Client satisfies it; tests substitute fakes.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SleepFunc waits for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PowerOfTwoSeconds waits 2^attempt seconds after a failed attempt:
// 2s after the first, 4s after the second.
func PowerOfTwoSeconds(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Policy bounds the attempts and the wait between them.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Sleep       SleepFunc
}

// NewPolicy returns a Policy with the 2^attempt curve and a real sleep.
// maxAttempts <= 0 defaults to 3.
func NewPolicy(maxAttempts int) Policy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return Policy{MaxAttempts: maxAttempts, Backoff: PowerOfTwoSeconds, Sleep: Sleep}
}

// Run calls attempt with 1, 2, ... until it reports done or MaxAttempts is
// reached, sleeping between tries. It returns the number of attempts made.
// A cancelled ctx stops the sequence after the current attempt.
func (p Policy) Run(ctx context.Context, attempt func(n int) (done bool)) int {
	backoff := p.Backoff
	if backoff == nil {
		backoff = PowerOfTwoSeconds
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	for n := 1; ; n++ {
		if attempt(n) || n >= p.MaxAttempts {
			return n
		}
		if err := sleep(ctx, backoff(n)); err != nil {
			return n
		}
	}
}
