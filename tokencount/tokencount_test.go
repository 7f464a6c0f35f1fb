package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatorCountsASCII(t *testing.T) {
	e := NewEstimator()
	n, err := e.CountTokens("hello world, this is a test sentence")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestEstimatorCJKIsDenserThanASCII(t *testing.T) {
	e := NewEstimator()
	ascii, _ := e.CountTokens("aaaaaaaaaa")
	cjk, _ := e.CountTokens("一二三四五六七八九十")
	assert.Greater(t, cjk, ascii)
}

func TestEstimatorEmptyStringIsZero(t *testing.T) {
	e := NewEstimator()
	n, err := e.CountTokens("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestForFallsBackWhenUnregistered(t *testing.T) {
	fallback := NewEstimator()
	c := For("some-unregistered-model", fallback)
	assert.Equal(t, "estimator", c.Name())
}

func TestRegisterAndFor(t *testing.T) {
	RegisterOpenAITokenizers()
	c := For("gpt-4o", NewEstimator())
	assert.Contains(t, c.Name(), "tiktoken")
}
