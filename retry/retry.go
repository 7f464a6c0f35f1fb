// Package retry implements the retry controller every provider call in the
// router goes through. It is grounded on the reference implementation's
// AsyncRetrying-based RetryManager: a global attempt cap, a cumulative
// idle-time cap, an immediate-stop error set, and per-failure-class wait
// functions (exponential+jitter for rate limits, fixed otherwise). Unlike
// the hand-rolled backoff retryer it is also grounded on, attempts here are
// capped by both count and cumulative wait time, and a caller-supplied
// BeforeAttempt/AfterAttempt pair is invoked around each call.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/modelroute/llmrouter/rerrors"
)

// WaitFunc computes how long to wait before the given attempt number
// (1-based: the wait before the second attempt is WaitFunc(1)).
type WaitFunc func(attempt int) time.Duration

// ExponentialJitterWait backs off exponentially from base, capped at max,
// with up to one second of added random jitter. Used for rate-limit
// errors, where every concurrent caller waiting the same fixed delay would
// cause a thundering herd against the same provider.
func ExponentialJitterWait(base, max time.Duration, multiplier float64) WaitFunc {
	return func(attempt int) time.Duration {
		d := float64(base) * math.Pow(multiplier, float64(attempt-1))
		if d > float64(max) {
			d = float64(max)
		}
		jitter := rand.Float64() * float64(time.Second)
		return time.Duration(d) + time.Duration(jitter)
	}
}

// FixedWait always waits the same duration.
func FixedWait(d time.Duration) WaitFunc {
	return func(int) time.Duration { return d }
}

// Config controls a Controller's stop conditions and per-class behavior.
type Config struct {
	// MaxAttempts is the global cap on attempts (the first call plus
	// retries). A value <= 1 disables retrying entirely.
	MaxAttempts int
	// MaxIdleTime caps the cumulative time spent waiting between attempts.
	// Zero means no cap.
	MaxIdleTime time.Duration
	// ImmediateStop lists codes that abort retrying on the spot,
	// regardless of the error's Retryable flag or remaining attempts.
	ImmediateStop map[rerrors.Code]bool
	// PerClassMaxAttempts overrides MaxAttempts for specific codes; a
	// request that keeps failing with a code present here stops retrying
	// once that many attempts have been made, even if MaxAttempts allows
	// more.
	PerClassMaxAttempts map[rerrors.Code]int
	// RateLimitWait computes the wait before retrying after a rate-limit
	// error. Defaults to ExponentialJitterWait(1s, 10s, 2).
	RateLimitWait WaitFunc
	// DefaultWait computes the wait before retrying after any other
	// retryable error. Defaults to FixedWait(1s).
	DefaultWait WaitFunc
	// OnRetry is called before each wait, for logging/metrics.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultConfig returns the Controller configuration used when none is
// supplied: three attempts total, a 30 second idle cap, and
// NoProviderAvailable as the only immediate-stop condition (retrying a
// scheduling failure without anything else changing cannot succeed).
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		MaxIdleTime:   30 * time.Second,
		ImmediateStop: map[rerrors.Code]bool{rerrors.CodeNoProviderAvailable: true},
	}
}

// Controller runs a function with retry according to Config.
type Controller struct {
	cfg Config
}

// New creates a Controller. Unset wait functions fall back to the package
// defaults.
func New(cfg Config) *Controller {
	if cfg.RateLimitWait == nil {
		cfg.RateLimitWait = ExponentialJitterWait(time.Second, 10*time.Second, 2)
	}
	if cfg.DefaultWait == nil {
		cfg.DefaultWait = FixedWait(time.Second)
	}
	return &Controller{cfg: cfg}
}

// Hooks lets a caller observe and act around each attempt, independent of
// the retry decision itself. AfterAttempt runs before the retry decision for
// that attempt is made. The router passes empty Hooks: it reserves and
// settles quota inside its own per-attempt function instead.
type Hooks struct {
	BeforeAttempt func(attempt int)
	AfterAttempt  func(attempt int, err error)
}

// Do runs fn, retrying on retryable errors until Config's stop conditions
// trigger. A non-retryable or immediate-stop error is returned as is; running
// out of attempts or idle time returns a RetryExhausted error wrapping the
// last one.
func Do[T any](ctx context.Context, c *Controller, hooks Hooks, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error
	var idle time.Duration

	maxAttempts := c.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if hooks.BeforeAttempt != nil {
			hooks.BeforeAttempt(attempt)
		}

		result, err := fn(ctx, attempt)

		if hooks.AfterAttempt != nil {
			hooks.AfterAttempt(attempt, err)
		}

		if err == nil {
			return result, nil
		}
		lastErr = err

		if !c.shouldRetry(err) {
			return zero, err
		}
		limit := maxAttempts
		if l, ok := c.cfg.PerClassMaxAttempts[rerrors.GetCode(err)]; ok && l < limit {
			limit = l
		}
		if attempt >= limit {
			return zero, rerrors.RetryExhausted(attempt, lastErr)
		}

		wait := c.waitFor(err, attempt)
		if c.cfg.MaxIdleTime > 0 && idle+wait > c.cfg.MaxIdleTime {
			return zero, rerrors.RetryExhausted(attempt, lastErr)
		}

		if c.cfg.OnRetry != nil {
			c.cfg.OnRetry(attempt, err, wait)
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(wait):
		}
		idle += wait
	}

	return zero, rerrors.RetryExhausted(maxAttempts, lastErr)
}

func (c *Controller) shouldRetry(err error) bool {
	if c.cfg.ImmediateStop[rerrors.GetCode(err)] {
		return false
	}
	return rerrors.IsRetryable(err)
}

func (c *Controller) waitFor(err error, attempt int) time.Duration {
	if rerrors.GetCode(err) == rerrors.CodeRateLimited {
		return c.cfg.RateLimitWait(attempt)
	}
	return c.cfg.DefaultWait(attempt)
}
