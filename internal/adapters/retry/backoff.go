package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Policy describes an exponential backoff retry policy. It is supplied by the
// caller; nothing in the runner retries implicitly.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      int
	Multiplier      float64
}

// DefaultPolicy is the policy applied to model backend calls unless configured
// otherwise.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxRetries:      3,
		Multiplier:      2.0,
	}
}

// None disables retries entirely.
func None() Policy {
	return Policy{MaxRetries: 0, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1}
}

// IsRetryableError reports whether a transport-level error is worth retrying.
// Context cancellation and deadline expiry are terminal by definition.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		// NXDOMAIN is definitive, everything else may be transient
		return !dnsErr.IsNotFound
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
			errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.EPIPE) {
			return true
		}
	}

	return false
}

// IsRetryableHTTPStatus reports whether an HTTP status from the model backend
// justifies another attempt.
func IsRetryableHTTPStatus(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests || statusCode == http.StatusRequestTimeout {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// Do runs fn under the policy, retrying transport-retryable errors. The
// retryable predicate can be overridden by callers whose failures are not
// network errors (the executor passes its own classification).
func (p Policy) Do(ctx context.Context, retryable func(error) bool, fn func() error) error {
	if retryable == nil {
		retryable = IsRetryableError
	}

	var lastErr error
	interval := p.InitialInterval

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return fmt.Errorf("non-retryable error on attempt %d: %w", attempt+1, err)
		}

		if attempt == p.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * p.Multiplier)
		if interval > p.MaxInterval {
			interval = p.MaxInterval
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", p.MaxRetries, lastErr)
}

// DoHTTP runs an HTTP request fn under the policy, consulting both the error
// and the returned status code.
func (p Policy) DoHTTP(ctx context.Context, fn func() (int, error)) error {
	var lastErr error
	var lastStatus int
	interval := p.InitialInterval

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		statusCode, err := fn()
		lastStatus = statusCode
		lastErr = err

		if err == nil && statusCode >= 200 && statusCode < 300 {
			return nil
		}

		shouldRetry := false
		if err != nil {
			shouldRetry = IsRetryableError(err)
		} else if statusCode > 0 {
			shouldRetry = IsRetryableHTTPStatus(statusCode)
		}

		if !shouldRetry {
			if err != nil {
				return fmt.Errorf("non-retryable error on attempt %d (status %d): %w", attempt+1, statusCode, err)
			}
			return fmt.Errorf("non-retryable status code %d on attempt %d", statusCode, attempt+1)
		}

		if attempt == p.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * p.Multiplier)
		if interval > p.MaxInterval {
			interval = p.MaxInterval
		}
	}

	if lastErr != nil {
		return fmt.Errorf("max retries (%d) exceeded (status %d): %w", p.MaxRetries, lastStatus, lastErr)
	}
	return fmt.Errorf("max retries (%d) exceeded with status code %d", p.MaxRetries, lastStatus)
}
