// Package rctx carries per-request routing state through a call chain.
// Go has no safe goroutine-local storage, so unlike the reference
// implementation's contextvars-based RouterContext, every value here rides
// explicitly on context.Context and must be threaded by the caller.
package rctx

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	modelGroupKey contextKey = "model_group"
	tokenCountKey contextKey = "token_count"
	providerIDKey contextKey = "provider_id"
	startTimeKey  contextKey = "start_time"
)

// New seeds a context with a fresh request id and start time for a routing
// attempt on the given model group. Callers add the token count once it has
// been estimated.
func New(parent context.Context, modelGroup string) context.Context {
	ctx := context.WithValue(parent, requestIDKey, uuid.NewString())
	ctx = context.WithValue(ctx, modelGroupKey, modelGroup)
	ctx = context.WithValue(ctx, startTimeKey, time.Now())
	return ctx
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	return v, ok && v != ""
}

func WithModelGroup(ctx context.Context, group string) context.Context {
	return context.WithValue(ctx, modelGroupKey, group)
}

func ModelGroup(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(modelGroupKey).(string)
	return v, ok && v != ""
}

func WithTokenCount(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, tokenCountKey, n)
}

func TokenCount(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(tokenCountKey).(int)
	return v, ok
}

// WithProviderID records which provider a request was scheduled to, once the
// load balancer has picked one. The router sets it after scheduling, on the
// context it passes to the provider's Completion call.
func WithProviderID(ctx context.Context, providerID string) context.Context {
	return context.WithValue(ctx, providerIDKey, providerID)
}

func ProviderID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(providerIDKey).(string)
	return v, ok && v != ""
}

func StartTime(ctx context.Context) (time.Time, bool) {
	v, ok := ctx.Value(startTimeKey).(time.Time)
	return v, ok
}

// StartMinute formats the context's start time as the YYYYMMDDhhmm bucket
// key used by quota and health records. Falls back to time.Now if the
// context carries no start time.
func StartMinute(ctx context.Context) string {
	t, ok := StartTime(ctx)
	if !ok {
		t = time.Now()
	}
	return t.UTC().Format("200601021504")
}
