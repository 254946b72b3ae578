package apierr_test

// Notes:
// - Classification is tested through the public API with fabricated
//   openai.APIError values, the same shape the client returns.
// - Unclassified errors must pass through unchanged so callers keep the
//   original message.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/HayatoBr/YTStudioAI/internal/apierr"
)

func apiErr(status int, msg string) error {
	return &openai.APIError{HTTPStatusCode: status, Message: msg}
}

// ---------------------------------------------------------------------------
// TestClassify - provider errors map to sentinels
// ---------------------------------------------------------------------------

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		inputErr  error
		wantError error
	}{
		{
			name:      "429 maps to rate limit",
			inputErr:  apiErr(http.StatusTooManyRequests, "rate limit reached"),
			wantError: apierr.ErrRateLimit,
		},
		{
			name:      "429 with quota message maps to quota exceeded",
			inputErr:  apiErr(http.StatusTooManyRequests, "you exceeded your current quota"),
			wantError: apierr.ErrQuotaExceeded,
		},
		{
			name:      "429 with billing message maps to quota exceeded",
			inputErr:  apiErr(http.StatusTooManyRequests, "billing hard limit reached"),
			wantError: apierr.ErrQuotaExceeded,
		},
		{
			name:      "401 maps to auth failed",
			inputErr:  apiErr(http.StatusUnauthorized, "invalid api key"),
			wantError: apierr.ErrAuthFailed,
		},
		{
			name:      "408 maps to timeout",
			inputErr:  apiErr(http.StatusRequestTimeout, "request timeout"),
			wantError: apierr.ErrTimeout,
		},
		{
			name:      "504 maps to timeout",
			inputErr:  apiErr(http.StatusGatewayTimeout, "gateway timeout"),
			wantError: apierr.ErrTimeout,
		},
		{
			name:      "400 maps to bad request",
			inputErr:  apiErr(http.StatusBadRequest, "invalid model"),
			wantError: apierr.ErrBadRequest,
		},
		{
			name:      "404 maps to bad request",
			inputErr:  apiErr(http.StatusNotFound, "model not found"),
			wantError: apierr.ErrBadRequest,
		},
		{
			name:      "deadline exceeded maps to timeout",
			inputErr:  fmt.Errorf("call failed: %w", context.DeadlineExceeded),
			wantError: apierr.ErrTimeout,
		},
		{
			name:      "500 is not classified",
			inputErr:  apiErr(http.StatusInternalServerError, "server error"),
			wantError: nil,
		},
		{
			name:      "plain error is not classified",
			inputErr:  errors.New("connection refused"),
			wantError: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := apierr.Classify(tt.inputErr)

			if tt.wantError == nil {
				if !errors.Is(got, tt.inputErr) && got.Error() != tt.inputErr.Error() {
					t.Errorf("unclassified error not preserved: got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.wantError) {
				t.Errorf("Classify() = %v, want %v", got, tt.wantError)
			}
		})
	}
}

func TestClassify_PreservesMessage(t *testing.T) {
	t.Parallel()

	got := apierr.Classify(apiErr(http.StatusUnauthorized, "incorrect API key provided"))
	if got == nil || !errors.Is(got, apierr.ErrAuthFailed) {
		t.Fatalf("Classify() = %v, want wrapped ErrAuthFailed", got)
	}
	if want := "incorrect API key provided"; !strings.Contains(got.Error(), want) {
		t.Errorf("message %q lost: %v", want, got)
	}
}

// ---------------------------------------------------------------------------
// TestIsRetryable - transient vs terminal errors
// ---------------------------------------------------------------------------

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		inputErr error
		want     bool
	}{
		{"rate limit is retryable", apierr.ErrRateLimit, true},
		{"wrapped rate limit is retryable", fmt.Errorf("call: %w", apierr.ErrRateLimit), true},
		{"timeout is retryable", apierr.ErrTimeout, true},
		{"500 is retryable", apiErr(http.StatusInternalServerError, "oops"), true},
		{"502 is retryable", apiErr(http.StatusBadGateway, "bad gateway"), true},
		{"503 is retryable", apiErr(http.StatusServiceUnavailable, "overloaded"), true},
		{"quota exceeded is not retryable", apierr.ErrQuotaExceeded, false},
		{"auth failure is not retryable", apierr.ErrAuthFailed, false},
		{"bad request is not retryable", apierr.ErrBadRequest, false},
		{"empty response is not retryable", apierr.ErrEmptyResponse, false},
		{"cancellation is not retryable", context.Canceled, false},
		{"unknown error is not retryable", errors.New("weird"), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := apierr.IsRetryable(tt.inputErr); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.inputErr, got, tt.want)
			}
		})
	}
}
