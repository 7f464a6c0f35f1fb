package provider

import (
	"testing"

	"github.com/modelroute/llmrouter/rerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsRequestWithNoMessages(t *testing.T) {
	req := &ChatRequest{Model: "m"}
	err := req.Validate()
	require.Error(t, err)
	assert.Equal(t, rerrors.CodeInvalidInput, rerrors.GetCode(err))
	assert.True(t, rerrors.IsFallback(err))
}

func TestValidateAcceptsRequestWithMessages(t *testing.T) {
	req := &ChatRequest{
		Model:    "m",
		Messages: []Message{{Role: "user", Content: "hi"}},
	}
	assert.NoError(t, req.Validate())
}
