// Package retry provides an exponential-backoff executor for calls to
// unreliable remote endpoints.
package retry

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"net"
	"syscall"
	"time"

	"github.com/ayane-t/mochimono/internal/apperr"
)

// Config configures Do.
type Config struct {
	// MaxAttempts caps total invocations, first call included.
	MaxAttempts int
	// BaseDelay is the first backoff; attempt n sleeps BaseDelay * 2^n.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff. Zero means no cap.
	MaxDelay time.Duration
	// Jitter adds up to 25% random slack to each backoff.
	Jitter bool
	// ShouldRetry classifies errors. Nil means IsTransient.
	ShouldRetry func(error) bool
}

// DefaultConfig matches the policy used for all remote service calls:
// three attempts, one-second base delay, jittered.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    8 * time.Second,
		Jitter:      true,
	}
}

// Do invokes op, retrying transient failures with exponential backoff
// until it succeeds, the classifier rejects the error, attempts run
// out, or ctx is cancelled. The last error is returned unwrapped so
// callers can match it with errors.Is.
func Do[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff(cfg, attempt)):
		}
	}

	return zero, lastErr
}

// backoff computes the delay before the next attempt.
func backoff(cfg Config, attempt int) time.Duration {
	d := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		d += d * 0.25 * rand.Float64()
	}
	return time.Duration(d)
}

// IsTransient is the default retry classifier. It matches the error
// taxonomy's transient class, rate-limit and gateway-style statuses,
// common network reset/timeout errno values, and timeout-abort
// signals. Validation, not-found, and authorization failures are
// never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, apperr.ErrValidation) ||
		errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrAuthorization) {
		return false
	}

	if errors.Is(err, apperr.ErrTransient) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return false
}

// RetryableStatus reports whether an HTTP-style status is worth
// retrying: rate limiting and temporary gateway failures.
func RetryableStatus(status int) bool {
	switch status {
	case 0, 429, 502, 503, 504:
		return true
	}
	return false
}
