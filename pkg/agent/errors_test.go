package agent

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/httpclient"
)

func TestIsQuotaOrAuth(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"429 Too Many Requests", true},
		{"insufficient quota for this request", true},
		{"rate limit exceeded, retry after 60s", true},
		{"401 Unauthorized", true},
		{"403 Forbidden", true},
		{"resource exhausted", true},
		{"dial tcp 127.0.0.1:443: connection refused", false},
		{"internal server error", false},
	}

	for _, tt := range tests {
		if got := IsQuotaOrAuth(errors.New(tt.msg)); got != tt.want {
			t.Errorf("IsQuotaOrAuth(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}

	if IsQuotaOrAuth(nil) {
		t.Error("nil error must not match")
	}
}

func TestIsQuotaOrAuth_RateLimitedHTTPError(t *testing.T) {
	rateLimited := &httpclient.RetryableError{
		StatusCode: http.StatusTooManyRequests,
		Message:    "slow down",
	}
	wrapped := fmt.Errorf("openai request failed: %w", rateLimited)
	if !IsQuotaOrAuth(wrapped) {
		t.Error("wrapped rate-limited HTTP error must trigger fallback")
	}

	serverErr := &httpclient.RetryableError{
		StatusCode: http.StatusInternalServerError,
		Message:    "upstream hiccup",
	}
	if IsQuotaOrAuth(serverErr) {
		t.Error("retryable server error is not a quota failure")
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorCategory
	}{
		{"429 Too Many Requests", ErrorQuota},
		{"connection reset by peer", ErrorNetwork},
		{"lookup api.example.com: no such host", ErrorNetwork},
		{"context deadline exceeded", ErrorNetwork},
		{"unexpected EOF", ErrorNetwork},
		{"model returned malformed response", ErrorGeneric},
	}

	for _, tt := range tests {
		if got := Categorize(errors.New(tt.msg)); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestUserFacingMessage_PersonaTemplates(t *testing.T) {
	persona := &config.PersonaConfig{
		ID: "p1",
		ErrorMessages: config.ErrorMessages{
			Quota:   "I'm at capacity right now.",
			Network: "I can't reach my backend.",
			Generic: "Something went sideways.",
		},
	}

	tests := []struct {
		err  error
		want string
	}{
		{errors.New("429 slow down"), "I'm at capacity right now."},
		{errors.New("dial tcp: connection refused"), "I can't reach my backend."},
		{errors.New("???"), "Something went sideways."},
	}

	for _, tt := range tests {
		if got := UserFacingMessage(persona, tt.err); got != tt.want {
			t.Errorf("UserFacingMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestUserFacingMessage_NeverLeaksProviderText(t *testing.T) {
	err := errors.New("401 invalid api key sk-secret-do-not-show")

	got := UserFacingMessage(nil, err)
	if got == "" {
		t.Fatal("message must not be empty when persona has no templates")
	}
	if got == err.Error() {
		t.Error("raw provider text must never reach the user")
	}
}

func TestUserFacingMessage_FillsMissingTemplates(t *testing.T) {
	persona := &config.PersonaConfig{
		ID:            "p1",
		ErrorMessages: config.ErrorMessages{Quota: "custom quota text"},
	}

	if got := UserFacingMessage(persona, errors.New("429")); got != "custom quota text" {
		t.Errorf("quota = %q, want custom quota text", got)
	}
	if got := UserFacingMessage(persona, errors.New("connection refused")); got == "" {
		t.Error("network message must fall back to a default, not empty")
	}
}
