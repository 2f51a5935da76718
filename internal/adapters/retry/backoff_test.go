package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "context canceled",
			err:      context.Canceled,
			expected: false,
		},
		{
			name:     "context deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: false,
		},
		{
			name:     "connection refused",
			err:      &net.OpError{Err: syscall.ECONNREFUSED},
			expected: true,
		},
		{
			name:     "connection reset",
			err:      &net.OpError{Err: syscall.ECONNRESET},
			expected: true,
		},
		{
			name:     "broken pipe",
			err:      &net.OpError{Err: syscall.EPIPE},
			expected: true,
		},
		{
			name:     "nxdomain",
			err:      &net.DNSError{IsNotFound: true},
			expected: false,
		},
		{
			name:     "transient dns failure",
			err:      &net.DNSError{IsTemporary: true},
			expected: true,
		},
		{
			name:     "generic error",
			err:      errors.New("something broke"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.expected {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		if got := IsRetryableHTTPStatus(tt.status); got != tt.expected {
			t.Errorf("IsRetryableHTTPStatus(%d) = %v, want %v", tt.status, got, tt.expected)
		}
	}
}

func fastPolicy(maxRetries int) Policy {
	return Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxRetries:      maxRetries,
		Multiplier:      2.0,
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	err := fastPolicy(3).Do(context.Background(), func(error) bool { return true }, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	terminal := errors.New("terminal")
	err := fastPolicy(5).Do(context.Background(), func(e error) bool { return !errors.Is(e, terminal) }, func() error {
		attempts++
		return terminal
	})
	if err == nil {
		t.Fatal("Do() error = nil, want error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !errors.Is(err, terminal) {
		t.Errorf("Do() error = %v, want wrapped terminal error", err)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	attempts := 0
	err := fastPolicy(2).Do(context.Background(), func(error) bool { return true }, func() error {
		attempts++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("Do() error = nil, want error")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", attempts)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastPolicy(3).Do(ctx, func(error) bool { return true }, func() error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

func TestDoHTTPRetriesServerErrors(t *testing.T) {
	attempts := 0
	err := fastPolicy(3).DoHTTP(context.Background(), func() (int, error) {
		attempts++
		if attempts < 2 {
			return http.StatusBadGateway, nil
		}
		return http.StatusOK, nil
	})
	if err != nil {
		t.Fatalf("DoHTTP() error = %v, want nil", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDoHTTPDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	err := fastPolicy(3).DoHTTP(context.Background(), func() (int, error) {
		attempts++
		return http.StatusUnauthorized, nil
	})
	if err == nil {
		t.Fatal("DoHTTP() error = nil, want error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
