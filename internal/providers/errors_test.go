package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
)

func TestClassifyTransportFailuresRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"connection reset", errors.New("read tcp 10.0.0.1:443: connection reset by peer")},
		{"eof mid-request", &url.Error{Op: "Post", URL: "https://api.example.com/v1", Err: errors.New("EOF")}},
		{"server error", errors.New("500 Internal Server Error")},
		{"bad gateway", errors.New("502 Bad Gateway")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			perr := classify("openai", tc.err)
			if !perr.Retryable() {
				t.Errorf("Expected %v to classify as retryable", tc.err)
			}
			if !errors.Is(perr, ErrUpstream) {
				t.Errorf("Expected upstream kind, got %v", perr.Kind)
			}
		})
	}
}

func TestClassifyDeadlineIsTimeout(t *testing.T) {
	perr := classify("gemini", fmt.Errorf("call failed: %w", context.DeadlineExceeded))
	if !errors.Is(perr, ErrTimeout) {
		t.Errorf("Expected timeout kind, got %v", perr.Kind)
	}
	if !perr.Retryable() {
		t.Error("Timeouts must be retryable")
	}
}

func TestMalformedResponseNotRetryable(t *testing.T) {
	perr := malformedError("claude", errors.New("empty answer content"))
	if perr.Retryable() {
		t.Error("Malformed responses must not be retried")
	}
	if !errors.Is(perr, ErrMalformedResponse) {
		t.Errorf("Expected malformed kind, got %v", perr.Kind)
	}
}

func TestQuotaErrorRetryable(t *testing.T) {
	perr := quotaError("openai", errors.New("429 Too Many Requests"))
	if !perr.Retryable() {
		t.Error("Quota rejections must be retried after backoff")
	}
}
