package chat

import (
	"errors"
	"testing"
)

func TestDefaultRetryConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultRetryConfig()

	if cfg.MaxRetries <= 0 {
		t.Errorf("MaxRetries should be positive, got %d", cfg.MaxRetries)
	}
	if cfg.InitialInterval <= 0 {
		t.Errorf("InitialInterval should be positive, got %v", cfg.InitialInterval)
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		t.Error("MaxInterval should be >= InitialInterval")
	}
}

func TestRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "rate limit", err: errors.New("rate limit exceeded"), want: true},
		{name: "quota exceeded", err: errors.New("quota exceeded for project"), want: true},
		{name: "429 status", err: errors.New("HTTP 429: Too Many Requests"), want: true},
		{name: "500 server error", err: errors.New("HTTP 500 Internal Server Error"), want: true},
		{name: "503 unavailable", err: errors.New("503 Service Unavailable"), want: true},
		{name: "unavailable keyword", err: errors.New("service UNAVAILABLE"), want: true},
		{name: "connection reset", err: errors.New("connection reset by peer"), want: true},
		{name: "timeout", err: errors.New("request timeout"), want: true},
		{name: "temporary failure", err: errors.New("temporary failure in name resolution"), want: true},
		{name: "invalid API key", err: errors.New("invalid API key"), want: false},
		{name: "bad request", err: errors.New("400 bad request"), want: false},
		{name: "safety block", err: errors.New("response blocked by safety settings"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestContainsAny(t *testing.T) {
	t.Parallel()

	if !containsAny("Rate Limit hit", "rate limit") {
		t.Error("containsAny should match case-insensitively")
	}
	if containsAny("all good", "rate limit", "timeout") {
		t.Error("containsAny matched nothing in common")
	}
}
