package rerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilders(t *testing.T) {
	cause := errors.New("boom")
	err := New(CodeRateLimited, "too many requests").
		WithCause(cause).
		WithHTTPStatus(429).
		WithRetryable(true).
		WithFallback(false).
		WithProvider("openai")

	assert.Equal(t, CodeRateLimited, err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
	assert.True(t, err.Retryable)
	assert.False(t, err.Fallback)
	assert.Equal(t, "openai", err.Provider)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestIsRetryableAndCode(t *testing.T) {
	err := New(CodeRequestTimeout, "timed out").WithRetryable(true)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, CodeRequestTimeout, GetCode(err))

	plain := errors.New("plain")
	assert.False(t, IsRetryable(plain))
	assert.Equal(t, Code(""), GetCode(plain))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		code Code
		want Classification
	}{
		{CodeRateLimited, ClassCritical},
		{CodeAuthentication, ClassCritical},
		{CodeNotFound, ClassCritical},
		{CodeRequestTimeout, ClassTemporary},
		{CodeInvalidRequest, ClassClientError},
		{CodeInternalServer, ClassClientError},
	}
	for _, c := range cases {
		got := Classify(New(c.code, "x"))
		assert.Equal(t, c.want, got, "code %s", c.code)
	}

	assert.Equal(t, ClassClientError, Classify(errors.New("not an *Error")))
}

func TestNoProviderAvailableNeverRetryable(t *testing.T) {
	err := NoProviderAvailable("gpt-4-group")
	assert.False(t, err.Retryable)
	assert.Equal(t, CodeNoProviderAvailable, err.Code)
}
