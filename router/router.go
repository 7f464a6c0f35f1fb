// Package router orchestrates one request end to end: pick an available
// provider, reserve its quota, call it, retry on retryable failure, and
// fall back to a different model group if the group's attempts exhaust
// with a fallback-eligible error. It is grounded on the reference
// implementation's async_completion / _trigger_fallback flow, adapted to
// Go's explicit context.Context propagation in place of contextvars.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/modelroute/llmrouter/balancer"
	"github.com/modelroute/llmrouter/cache"
	"github.com/modelroute/llmrouter/health"
	"github.com/modelroute/llmrouter/provider"
	"github.com/modelroute/llmrouter/quota"
	"github.com/modelroute/llmrouter/rctx"
	"github.com/modelroute/llmrouter/rerrors"
	"github.com/modelroute/llmrouter/retry"
	"github.com/modelroute/llmrouter/routerconfig"
	"github.com/modelroute/llmrouter/tokencount"

	"go.uber.org/zap"
)

// Router is the router coordination engine. One Router instance is built
// per process and shared across every incoming request.
type Router struct {
	cfg       *routerconfig.Config
	providers map[string]provider.Provider
	quota     *quota.Manager
	health    *health.Manager
	logger    *zap.Logger
}

// New builds a Router. providers must contain every provider ID referenced
// by cfg's model groups; a missing one surfaces as a scheduling error at
// request time rather than at construction, since a provider going away is
// an expected runtime event, not a configuration error.
func New(cfg *routerconfig.Config, providers map[string]provider.Provider) *Router {
	shared := cache.New()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:       cfg,
		providers: providers,
		quota:     quota.New(quota.WithCache(shared)),
		health: health.New(
			health.WithCache(shared),
			health.WithPolicy(cfg.Policy),
			health.WithCooldownSeconds(cfg.Cooldown),
		),
		logger: logger,
	}
}

// Completion routes req to the named model group, retrying and falling
// back as configured. This is the router's single public entry point;
// fallback re-enters it recursively with retrying capped to one attempt
// and further fallback disabled, so a chain of fallback groups cannot loop
// back on itself indefinitely.
func (r *Router) Completion(ctx context.Context, modelGroup string, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	return r.completion(ctx, modelGroup, req, nil, true)
}

func (r *Router) completion(ctx context.Context, modelGroup string, req *provider.ChatRequest, retryOverride *retry.Config, allowFallback bool) (*provider.ChatResponse, error) {
	group, ok := r.cfg.ModelGroups[modelGroup]
	if !ok {
		return nil, rerrors.New(rerrors.CodeNotFound, fmt.Sprintf("unknown model group %q", modelGroup)).
			WithFallback(true)
	}

	// Normalize: work against our own copy so nothing downstream — retry
	// attempts, fallback recursion, a future request-shaping step — can
	// ever mutate the caller's original request.
	req = req.Clone()

	resp, err := r.scheduleWithRetry(ctx, modelGroup, group, req, retryOverride)

	if err != nil && allowFallback && rerrors.IsFallback(err) {
		return r.triggerFallback(ctx, group, req, err)
	}
	return resp, err
}

// scheduleWithRetry validates req, then runs the retry-wrapped
// schedule-and-call loop for one model group.
func (r *Router) scheduleWithRetry(ctx context.Context, modelGroup string, group routerconfig.ModelGroupConfig, req *provider.ChatRequest, retryOverride *retry.Config) (*provider.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx = rctx.New(ctx, modelGroup)
	tokenCount := r.estimateTokens(req)
	ctx = rctx.WithTokenCount(ctx, tokenCount)
	minute := rctx.StartMinute(ctx)

	retryCfg := r.cfg.Retry
	if retryOverride != nil {
		retryCfg = *retryOverride
	}
	controller := retry.New(retryCfg)
	bal := balancer.New(group.Strategy)

	start := time.Now()
	resp, err := retry.Do(ctx, controller, retry.Hooks{}, func(ctx context.Context, attempt int) (*provider.ChatResponse, error) {
		return r.attempt(ctx, group, bal, minute, tokenCount, req)
	})
	r.recordSchedule(string(group.Strategy), modelGroup, start, err)
	return resp, err
}

// triggerFallback tries group.FallbackGroups in order, each with retrying
// capped to one attempt and further fallback disabled, stopping at the
// first one that succeeds. If every fallback group also fails, the last
// error is returned. Mirrors the reference implementation's
// _trigger_fallback loop over degraded_map[model_group].
func (r *Router) triggerFallback(ctx context.Context, group routerconfig.ModelGroupConfig, req *provider.ChatRequest, lastErr error) (*provider.ChatResponse, error) {
	if len(group.FallbackGroups) == 0 {
		return nil, lastErr
	}
	for _, fallbackGroup := range group.FallbackGroups {
		r.logger.Info("falling back to next model group",
			zap.String("from", group.Name), zap.String("to", fallbackGroup))
		resp, err := r.completion(ctx, fallbackGroup, req, &retry.Config{MaxAttempts: 1}, false)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// attempt runs exactly one scheduling+call cycle: pick a provider, reserve
// its quota, call it, and settle the reservation based on the outcome.
func (r *Router) attempt(ctx context.Context, group routerconfig.ModelGroupConfig, bal balancer.Balancer, minute string, tokenCount int, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	candidates := r.availableCandidates(group)
	if len(candidates) == 0 {
		return nil, rerrors.NoProviderAvailable(group.Name)
	}

	chosen, err := bal.Schedule(ctx, balancer.Request{
		ModelGroup: group.Name,
		Minute:     minute,
		TokenCount: tokenCount,
		Candidates: candidates,
		Quota:      r.quota,
	})
	if err != nil {
		return nil, err
	}

	ctx = rctx.WithProviderID(ctx, chosen.ProviderID)
	r.logger.Debug("scheduled provider",
		zap.String("model_group", group.Name),
		zap.String("provider", chosen.ProviderID),
		zap.String("reason", chosen.Reason))
	r.quota.IncreaseRPMOccupied(group.Name, chosen.ProviderID, minute)
	r.quota.IncreaseTPMOccupied(group.Name, chosen.ProviderID, minute, tokenCount)

	p, ok := r.providers[chosen.ProviderID]
	if !ok {
		r.quota.ReleaseRPMOccupied(group.Name, chosen.ProviderID, minute)
		r.quota.ReleaseTPMOccupied(group.Name, chosen.ProviderID, minute, tokenCount)
		return nil, rerrors.New(rerrors.CodeNoProviderAvailable,
			fmt.Sprintf("provider %q has no registered collaborator", chosen.ProviderID))
	}

	resp, callErr := p.Completion(ctx, req)
	if callErr != nil {
		r.quota.ReleaseRPMOccupied(group.Name, chosen.ProviderID, minute)
		r.quota.ReleaseTPMOccupied(group.Name, chosen.ProviderID, minute, tokenCount)
		r.health.RecordFailure(chosen.ProviderID, minute, callErr)
		r.recordAttempt(chosen.ProviderID, "failure")
		return nil, callErr
	}

	r.quota.UpdateRPMUsed(group.Name, chosen.ProviderID, minute)
	r.quota.UpdateTPMUsed(group.Name, chosen.ProviderID, minute, tokenCount)
	r.recordAttempt(chosen.ProviderID, "success")
	return resp, nil
}

func (r *Router) availableCandidates(group routerconfig.ModelGroupConfig) []balancer.Candidate {
	ids := make([]string, len(group.Providers))
	byID := make(map[string]routerconfig.ProviderConfig, len(group.Providers))
	for i, p := range group.Providers {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	avail := r.health.AvailableProviders(ids)
	candidates := make([]balancer.Candidate, 0, len(avail))
	for _, id := range avail {
		p := byID[id]
		candidates = append(candidates, balancer.Candidate{
			ProviderID: p.ID,
			RPMLimit:   p.RPMLimit,
			TPMLimit:   p.TPMLimit,
			Weight:     p.Weight,
		})
	}
	return candidates
}

func (r *Router) estimateTokens(req *provider.ChatRequest) int {
	if r.cfg.TokenCount == nil {
		return 0
	}
	msgs := make([]tokencount.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = tokencount.Message{Role: m.Role, Content: m.Content}
	}
	n, err := r.cfg.TokenCount.CountMessages(msgs)
	if err != nil {
		return 0
	}
	return n
}

func (r *Router) recordSchedule(strategy, modelGroup string, start time.Time, err error) {
	if r.cfg.Metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.cfg.Metrics.RecordSchedule(strategy, outcome, modelGroup, time.Since(start))
}

func (r *Router) recordAttempt(providerID, result string) {
	if r.cfg.Metrics == nil {
		return
	}
	r.cfg.Metrics.RecordAttempt(providerID, result)
}
