// Package provider defines the collaborator interface the router schedules
// calls against, plus two reference adapters. It is grounded on the
// teacher's unified Provider interface, trimmed to what a router needs to
// make a scheduling decision and issue a call: no streaming, no tool
// calling, no model listing.
package provider

import (
	"context"
	"time"

	"github.com/modelroute/llmrouter/rerrors"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string
	Content string
}

// ChatRequest is a single completion request routed to a provider.
type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Clone returns a deep copy of req: the Messages slice is copied rather
// than shared, so the router can normalize a request (or let a retry
// attempt mutate its own working copy) without the caller's original ever
// being visible to a mutation downstream.
func (req *ChatRequest) Clone() *ChatRequest {
	if req == nil {
		return nil
	}
	clone := *req
	if req.Messages != nil {
		clone.Messages = make([]Message, len(req.Messages))
		copy(clone.Messages, req.Messages)
	}
	return &clone
}

// Validate reports whether req carries enough to send to a provider.
// Grounded on the reference implementation's validate_completion_inputs
// decorator, which rejects a call with neither text nor messages before it
// ever reaches scheduling.
func (req *ChatRequest) Validate() error {
	if len(req.Messages) == 0 {
		return rerrors.New(rerrors.CodeInvalidInput, "either text or messages must be provided").
			WithFallback(true)
	}
	return nil
}

// ChatUsage reports actual token consumption as returned by the provider.
// The router commits TPM usage with its own pre-call token estimate (the
// amount it reserved), not with these figures.
type ChatUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResponse is a completed provider response.
type ChatResponse struct {
	ID        string
	Model     string
	Content   string
	Usage     ChatUsage
	CreatedAt time.Time
}

// HealthStatus is the result of a lightweight liveness probe.
type HealthStatus struct {
	Healthy bool
	Latency time.Duration
}

// Provider is the collaborator interface every scheduled candidate
// implements.
type Provider interface {
	// ID returns the provider's identifier, matching the ProviderID used
	// in balancer.Candidate and quota/health record keys.
	ID() string
	// Completion issues a synchronous chat request.
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// HealthCheck performs a lightweight liveness probe.
	HealthCheck(ctx context.Context) (*HealthStatus, error)
}
