package provider

import (
	"testing"

	"github.com/modelroute/llmrouter/rerrors"
	"github.com/stretchr/testify/assert"
)

func TestMapHTTPErrorAuthenticationIsFallbackEligible(t *testing.T) {
	err := MapHTTPError(401, "invalid api key", "openai")
	assert.Equal(t, rerrors.CodeAuthentication, err.Code)
	assert.True(t, err.Fallback)
}

func TestMapHTTPErrorContextWindowIsFallbackEligible(t *testing.T) {
	err := MapHTTPError(400, `{"error":{"message":"maximum context length exceeded"}}`, "openai")
	assert.Equal(t, rerrors.CodeContextWindowExceeded, err.Code)
	assert.True(t, err.Fallback)
}

func TestMapHTTPErrorContentPolicyIsFallbackEligible(t *testing.T) {
	err := MapHTTPError(400, `{"error":{"message":"flagged by our safety system"}}`, "openai")
	assert.Equal(t, rerrors.CodeContentPolicy, err.Code)
	assert.True(t, err.Fallback)
}

func TestMapHTTPErrorPlainBadRequestIsNotFallbackEligible(t *testing.T) {
	err := MapHTTPError(400, `{"error":{"message":"missing required field"}}`, "openai")
	assert.Equal(t, rerrors.CodeInvalidRequest, err.Code)
	assert.False(t, err.Fallback)
}

func TestMapHTTPErrorRateLimitedIsRetryable(t *testing.T) {
	err := MapHTTPError(429, "too many requests", "openai")
	assert.Equal(t, rerrors.CodeRateLimited, err.Code)
	assert.True(t, err.Retryable)
}
