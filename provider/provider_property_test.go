package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// Law: deep-copying a request and mutating the copy never mutates the
// original — the router relies on this to normalize a request once per
// call without risk of leaking a mutation back to the caller.
func TestProperty_CloneDoesNotMutateOriginal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 5).Draw(rt, "numMessages")
		messages := make([]Message, n)
		for i := range messages {
			messages[i] = Message{
				Role:    rapid.SampledFrom([]string{"user", "assistant", "system"}).Draw(rt, "role"),
				Content: rapid.String().Draw(rt, "content"),
			}
		}
		original := &ChatRequest{
			Model:     rapid.String().Draw(rt, "model"),
			Messages:  messages,
			MaxTokens: rapid.IntRange(0, 8192).Draw(rt, "maxTokens"),
		}
		snapshotMessages := make([]Message, len(original.Messages))
		copy(snapshotMessages, original.Messages)

		clone := original.Clone()
		if len(clone.Messages) > 0 {
			clone.Messages[0].Content = "mutated"
		}
		clone.Model = "mutated-model"
		clone.MaxTokens = -1

		assert.Equal(t, snapshotMessages, original.Messages)
		assert.NotEqual(t, "mutated-model", original.Model)
		if n > 0 {
			assert.NotEqual(t, "mutated", original.Messages[0].Content)
		}
	})
}

func TestCloneOfNilIsNil(t *testing.T) {
	var req *ChatRequest
	assert.Nil(t, req.Clone())
}

func TestCloneOfEmptyMessagesStaysNil(t *testing.T) {
	req := &ChatRequest{Model: "m"}
	clone := req.Clone()
	assert.Nil(t, clone.Messages)
}
