// Package routerconfig assembles the configuration tree a Router is built
// from. It follows a functional-options style rather than the teacher's
// hot-reloadable config-service pattern: this router has no remote config
// backend, so options are set once at construction and are immutable
// afterward.
package routerconfig

import (
	"sync"

	"github.com/modelroute/llmrouter/balancer"
	"github.com/modelroute/llmrouter/health"
	"github.com/modelroute/llmrouter/metrics"
	"github.com/modelroute/llmrouter/providerid"
	"github.com/modelroute/llmrouter/retry"
	"github.com/modelroute/llmrouter/tokencount"

	"go.uber.org/zap"
)

// ProviderConfig describes one provider's ceilings within a model group.
//
// ID is the identity used throughout quota/health/balancer accounting and
// for looking up the provider's collaborator in the Router's provider map.
// ModelID and Impl are optional: when set, Fingerprint derives a stable,
// content-addressed identity from them instead of requiring the caller to
// invent one, so two equal configurations assembled independently always
// dedupe to the same accounting bucket.
type ProviderConfig struct {
	ID       string
	ModelID  string
	Impl     string
	RPMLimit int
	TPMLimit int
	Weight   float64

	fingerprintOnce sync.Once
	fingerprint     string
}

// Fingerprint returns the SHA-256 fingerprint of {ModelID, Impl, RPMLimit,
// TPMLimit}, computed once and memoized. Impl defaults to ID when unset, so
// callers that only ever set ID still get a stable, reproducible digest.
func (p *ProviderConfig) Fingerprint() string {
	p.fingerprintOnce.Do(func() {
		impl := p.Impl
		if impl == "" {
			impl = p.ID
		}
		p.fingerprint = providerid.Fingerprint(p.ModelID, impl, p.RPMLimit, p.TPMLimit)
	})
	return p.fingerprint
}

// ModelGroupConfig groups interchangeable providers behind one logical
// model name, along with the strategy used to pick among them.
type ModelGroupConfig struct {
	Name      string
	Providers []ProviderConfig
	Strategy  balancer.Strategy
	// FallbackGroups, if set, are tried in order (each with retrying and
	// further fallback disabled) once this group's attempts are exhausted
	// with a fallback-eligible error. The first to succeed wins; if every
	// one also fails, the last fallback's error is returned.
	FallbackGroups []string
}

// Config is the full configuration tree for a Router.
type Config struct {
	ModelGroups map[string]ModelGroupConfig
	Retry       retry.Config
	Policy      health.AllowedFailsPolicy
	Cooldown    int
	Logger      *zap.Logger
	Metrics     *metrics.Collector
	TokenCount  tokencount.Counter
}

// Option configures a Config.
type Option func(*Config)

// New builds a Config, applying the defaults first (retry.DefaultConfig, the
// health package's default policy and cooldown, a no-op logger) and then
// opts in order.
func New(opts ...Option) *Config {
	cfg := &Config{
		ModelGroups: make(map[string]ModelGroupConfig),
		Retry:       retry.DefaultConfig(),
		Policy:      health.DefaultAllowedFailsPolicy(),
		Cooldown:    health.DefaultCooldownSeconds,
		Logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithModelGroup registers or replaces a model group. Any provider left
// without an explicit ID is assigned its content-addressed Fingerprint, so
// two providers with identical ModelID/Impl/RPMLimit/TPMLimit always
// collapse onto the same accounting identity even when the caller never
// named one.
func WithModelGroup(g ModelGroupConfig) Option {
	for i := range g.Providers {
		if g.Providers[i].ID == "" {
			g.Providers[i].ID = g.Providers[i].Fingerprint()
		}
	}
	return func(c *Config) { c.ModelGroups[g.Name] = g }
}

// WithRetryConfig overrides the retry controller configuration shared by
// every model group.
func WithRetryConfig(rc retry.Config) Option {
	return func(c *Config) { c.Retry = rc }
}

// WithAllowedFailsPolicy overrides the cooldown allowed-fails policy.
func WithAllowedFailsPolicy(p health.AllowedFailsPolicy) Option {
	return func(c *Config) { c.Policy = p }
}

// WithCooldownSeconds overrides how long a provider stays in cooldown once
// tripped.
func WithCooldownSeconds(s int) Option {
	return func(c *Config) { c.Cooldown = s }
}

// WithLogger overrides the zap logger used throughout the router.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics attaches a metrics collector. Nil (the default) disables
// instrumentation.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithTokenCounter overrides the token counting collaborator used to
// estimate TPM reservations.
func WithTokenCounter(tc tokencount.Counter) Option {
	return func(c *Config) { c.TokenCount = tc }
}
