// Package health tracks which providers are currently usable. A provider
// enters cooldown after a failure the policy decides is disqualifying;
// while in cooldown it is excluded from scheduling until the cooldown
// window expires. This mirrors the cooldown/fail-counter state machine of
// the provider status manager this router replaces, adapted to Go's
// explicit-error-value model instead of an exception class hierarchy.
package health

import (
	"fmt"
	"sync"
	"time"

	"github.com/modelroute/llmrouter/cache"
	"github.com/modelroute/llmrouter/rerrors"
)

// DefaultCooldownSeconds is how long a provider stays excluded once it
// trips cooldown.
const DefaultCooldownSeconds = 60

// DefaultGeneralAllowedFails is how many client-error-class failures a
// provider may accumulate within one minute bucket before cooldown, when
// no error-specific override applies.
const DefaultGeneralAllowedFails = 3

// defaultCacheTTL keeps cooldown and fail-counter records around well past
// their logical lifetime so a delayed metrics read can still see them.
const defaultCacheTTL = time.Hour

// AllowedFailsPolicy overrides the general allowance on a per-error-code
// basis. A nil field falls back to GeneralAllowedFails.
type AllowedFailsPolicy struct {
	GeneralAllowedFails int

	InvalidRequestAllowedFails *int
	AuthenticationAllowedFails *int
	RequestTimeoutAllowedFails *int
	RateLimitedAllowedFails    *int
	ContentPolicyAllowedFails  *int
	InternalServerAllowedFails *int
}

// DefaultAllowedFailsPolicy returns the policy applied when a Manager is
// constructed without WithPolicy.
func DefaultAllowedFailsPolicy() AllowedFailsPolicy {
	return AllowedFailsPolicy{GeneralAllowedFails: DefaultGeneralAllowedFails}
}

func (p AllowedFailsPolicy) allowedFailsFor(code rerrors.Code) int {
	var override *int
	switch code {
	case rerrors.CodeInvalidRequest:
		override = p.InvalidRequestAllowedFails
	case rerrors.CodeAuthentication:
		override = p.AuthenticationAllowedFails
	case rerrors.CodeRequestTimeout:
		override = p.RequestTimeoutAllowedFails
	case rerrors.CodeRateLimited:
		override = p.RateLimitedAllowedFails
	case rerrors.CodeContentPolicy:
		override = p.ContentPolicyAllowedFails
	case rerrors.CodeInternalServer:
		override = p.InternalServerAllowedFails
	}
	if override != nil {
		return *override
	}
	if p.GeneralAllowedFails > 0 {
		return p.GeneralAllowedFails
	}
	return DefaultGeneralAllowedFails
}

// CooldownState records why and when a provider was put in cooldown.
type CooldownState struct {
	Code            rerrors.Code
	Timestamp       time.Time
	CooldownSeconds int
}

// IsExpired reports whether the cooldown window has elapsed.
func (c CooldownState) IsExpired() bool {
	return time.Now().After(c.Timestamp.Add(time.Duration(c.CooldownSeconds) * time.Second))
}

// Manager tracks cooldown state and fail counters for a set of providers.
type Manager struct {
	store           *cache.Cache
	policy          AllowedFailsPolicy
	cooldownSeconds int
	locks           sync.Map // key string -> *sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithPolicy overrides the default allowed-fails policy.
func WithPolicy(p AllowedFailsPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithCooldownSeconds overrides DefaultCooldownSeconds.
func WithCooldownSeconds(s int) Option {
	return func(m *Manager) { m.cooldownSeconds = s }
}

// WithCache injects a shared cache instance instead of allocating a
// dedicated one.
func WithCache(c *cache.Cache) Option {
	return func(m *Manager) { m.store = c }
}

// New creates a Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		policy:          DefaultAllowedFailsPolicy(),
		cooldownSeconds: DefaultCooldownSeconds,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = cache.New()
	}
	return m
}

func cooldownKey(providerID string) string {
	return fmt.Sprintf("health:cooldown:%s", providerID)
}

// failKey is shared by every client-error class for a given provider and
// minute: the counter tracks how many client-error failures a provider has
// had in that minute, regardless of which code each one carried. Only the
// threshold compared against the counter (allowedFailsFor) varies by code.
func failKey(providerID, minute string) string {
	return fmt.Sprintf("health:fails:%s:%s", providerID, minute)
}

func (m *Manager) lockFor(k string) *sync.Mutex {
	v, _ := m.locks.LoadOrStore(k, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// IsAvailable reports whether providerID is not currently in an unexpired
// cooldown.
func (m *Manager) IsAvailable(providerID string) bool {
	state, ok := m.LastCooldown(providerID)
	return !ok || state.IsExpired()
}

// AvailableProviders filters providerIDs down to those not in cooldown.
func (m *Manager) AvailableProviders(providerIDs []string) []string {
	out := make([]string, 0, len(providerIDs))
	for _, id := range providerIDs {
		if m.IsAvailable(id) {
			out = append(out, id)
		}
	}
	return out
}

// LastCooldown returns the most recently recorded cooldown state for a
// provider, whether or not it has expired. Used for metrics and by
// IsAvailable.
func (m *Manager) LastCooldown(providerID string) (CooldownState, bool) {
	v, ok := m.store.Get(cooldownKey(providerID))
	if !ok {
		return CooldownState{}, false
	}
	return v.(CooldownState), true
}

// RecordFailure classifies err and, if the classification and fail count
// warrant it, puts providerID into cooldown. Returns true if cooldown was
// (re-)triggered by this call.
//
//   - ClassCritical errors always trigger cooldown.
//   - ClassTemporary errors never count and never trigger cooldown.
//   - ClassClientError errors increment a per-minute fail counter; cooldown
//     triggers once the counter exceeds the policy's allowance for that
//     error code.
func (m *Manager) RecordFailure(providerID string, minute string, err error) bool {
	switch rerrors.Classify(err) {
	case rerrors.ClassTemporary:
		return false
	case rerrors.ClassCritical:
		m.cooldown(providerID, rerrors.GetCode(err))
		return true
	default:
		return m.recordClientErrorFailure(providerID, minute, err)
	}
}

func (m *Manager) recordClientErrorFailure(providerID, minute string, err error) bool {
	code := rerrors.GetCode(err)
	k := failKey(providerID, minute)
	lock := m.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	count := 0
	if v, ok := m.store.Get(k); ok {
		count = v.(int)
	}
	count++
	m.store.Set(k, count, defaultCacheTTL)

	if count > m.policy.allowedFailsFor(code) {
		m.cooldown(providerID, code)
		return true
	}
	return false
}

func (m *Manager) cooldown(providerID string, code rerrors.Code) {
	state := CooldownState{
		Code:            code,
		Timestamp:       time.Now(),
		CooldownSeconds: m.cooldownSeconds,
	}
	m.store.Set(cooldownKey(providerID), state, defaultCacheTTL)
}

// ClearCooldown removes any cooldown state for providerID immediately,
// regardless of whether the window has elapsed. Intended for operator
// intervention or tests, not normal scheduling flow.
func (m *Manager) ClearCooldown(providerID string) {
	m.store.Delete(cooldownKey(providerID))
}
