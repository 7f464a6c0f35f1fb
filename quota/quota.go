// Package quota tracks per-provider, per-minute RPM and TPM usage against
// configured ceilings. It is grounded on the reservation/confirm/release
// lifecycle of the rate limit manager this router replaces: a caller
// reserves capacity before issuing a request (occupying), then either
// confirms it on success (occupying moves to used) or releases it on
// failure (occupying is simply freed).
package quota

import (
	"fmt"
	"sync"
	"time"

	"github.com/modelroute/llmrouter/cache"
)

// Dimension distinguishes requests-per-minute from tokens-per-minute
// accounting. The two are tracked in fully independent key spaces.
type Dimension string

const (
	RPM Dimension = "rpm"
	TPM Dimension = "tpm"
)

// DefaultTTL keeps minute-bucketed usage records around for a full day
// after their minute closes, long enough for a delayed metrics reader to
// still see them. Logical retention for scheduling decisions is only the
// current minute; the extra TTL headroom is purely for observability.
const DefaultTTL = 24 * time.Hour

// Usage is the reservation state for one (dimension, group, provider,
// minute) cell. Total is what scheduling decisions compare against a
// provider's ceiling.
type Usage struct {
	Used      int
	Occupying int
}

// Total returns committed usage plus capacity reserved for in-flight calls.
func (u Usage) Total() int { return u.Used + u.Occupying }

// Manager is the RPM/TPM accounting engine. It is safe for concurrent use.
type Manager struct {
	store *cache.Cache
	ttl   time.Duration
	locks sync.Map // key string -> *sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// WithCache injects a pre-built cache, letting callers share one sharded
// cache across quota, health, and any other bucketed state. A nil store
// makes New allocate its own.
func WithCache(c *cache.Cache) Option {
	return func(m *Manager) { m.store = c }
}

// New creates a Manager. If no cache is supplied via WithCache, a
// dedicated one is allocated with default sharding.
func New(opts ...Option) *Manager {
	m := &Manager{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = cache.New()
	}
	return m
}

func key(dim Dimension, modelGroup, providerID, minute string) string {
	return fmt.Sprintf("quota:%s:%s:%s:%s", dim, modelGroup, providerID, minute)
}

// lockFor returns the mutex guarding a given cell, creating it atomically
// if this is the first access. sync.Map's LoadOrStore makes the
// check-then-insert race-free without a separate guarding mutex over the
// map itself.
func (m *Manager) lockFor(k string) *sync.Mutex {
	v, _ := m.locks.LoadOrStore(k, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (m *Manager) read(k string) Usage {
	v, ok := m.store.Get(k)
	if !ok {
		return Usage{}
	}
	return v.(Usage)
}

func (m *Manager) write(k string, u Usage) {
	m.store.Set(k, u, m.ttl)
}

// IncreaseOccupied reserves amount units of capacity for an in-flight call.
// Reservations accumulate: calling it twice for the same minute cell adds
// to Occupying rather than overwriting it, so concurrent in-flight calls
// against the same provider are all accounted for.
func (m *Manager) IncreaseOccupied(dim Dimension, modelGroup, providerID, minute string, amount int) Usage {
	k := key(dim, modelGroup, providerID, minute)
	lock := m.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	u := m.read(k)
	u.Occupying += amount
	m.write(k, u)
	return u
}

// ReleaseOccupied frees a reservation that did not turn into committed
// usage, typically because the call failed before completing.
func (m *Manager) ReleaseOccupied(dim Dimension, modelGroup, providerID, minute string, amount int) Usage {
	k := key(dim, modelGroup, providerID, minute)
	lock := m.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	u := m.read(k)
	u.Occupying -= amount
	if u.Occupying < 0 {
		u.Occupying = 0
	}
	m.write(k, u)
	return u
}

// UpdateUsed commits amount units of actually-consumed capacity and
// releases the matching reservation, called once a provider call succeeds.
func (m *Manager) UpdateUsed(dim Dimension, modelGroup, providerID, minute string, amount int) Usage {
	k := key(dim, modelGroup, providerID, minute)
	lock := m.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	u := m.read(k)
	u.Used += amount
	u.Occupying -= amount
	if u.Occupying < 0 {
		u.Occupying = 0
	}
	m.write(k, u)
	return u
}

// IncreaseRPMOccupied reserves one request-per-minute slot.
func (m *Manager) IncreaseRPMOccupied(modelGroup, providerID, minute string) Usage {
	return m.IncreaseOccupied(RPM, modelGroup, providerID, minute, 1)
}

// ReleaseRPMOccupied frees a previously reserved RPM slot.
func (m *Manager) ReleaseRPMOccupied(modelGroup, providerID, minute string) Usage {
	return m.ReleaseOccupied(RPM, modelGroup, providerID, minute, 1)
}

// UpdateRPMUsed commits one RPM slot as actually used.
func (m *Manager) UpdateRPMUsed(modelGroup, providerID, minute string) Usage {
	return m.UpdateUsed(RPM, modelGroup, providerID, minute, 1)
}

// IncreaseTPMOccupied reserves tokenCount tokens-per-minute of capacity.
//
// The reference implementation this accounting model is drawn from has a
// latent bug here: its increase_tpm_occupied calls into the RPM dimension
// instead of TPM, so token reservations silently inflate request counts
// instead of token counts. That bug is not reproduced: this method writes
// to the TPM dimension, as its name promises.
func (m *Manager) IncreaseTPMOccupied(modelGroup, providerID, minute string, tokenCount int) Usage {
	return m.IncreaseOccupied(TPM, modelGroup, providerID, minute, tokenCount)
}

// ReleaseTPMOccupied frees a previously reserved TPM reservation.
func (m *Manager) ReleaseTPMOccupied(modelGroup, providerID, minute string, tokenCount int) Usage {
	return m.ReleaseOccupied(TPM, modelGroup, providerID, minute, tokenCount)
}

// UpdateTPMUsed commits tokenCount tokens as actually consumed.
func (m *Manager) UpdateTPMUsed(modelGroup, providerID, minute string, tokenCount int) Usage {
	return m.UpdateUsed(TPM, modelGroup, providerID, minute, tokenCount)
}

// UsageAt returns the usage recorded for one minute cell without mutating
// it. Used by load balancer strategies to check headroom against ceilings.
func (m *Manager) UsageAt(dim Dimension, modelGroup, providerID, minute string) Usage {
	return m.read(key(dim, modelGroup, providerID, minute))
}
