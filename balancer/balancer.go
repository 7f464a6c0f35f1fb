// Package balancer selects which provider should serve a request among the
// candidates the health manager reports as available. Each strategy is
// grounded on one of the load balancer implementations this router
// replaces (random choice, capacity-weighted choice, lowest-current-load
// choice); Latency and Cost are named but not implemented, since nothing in
// scope here yet produces the per-provider latency or cost signal a real
// implementation would need.
package balancer

import (
	"context"
	"math/rand"

	"github.com/modelroute/llmrouter/quota"
	"github.com/modelroute/llmrouter/rerrors"
)

// Candidate is a provider eligible for scheduling, with the ceilings a
// strategy checks usage against.
type Candidate struct {
	ProviderID string
	RPMLimit   int
	TPMLimit   int
	// Weight is a static preference used by CapacityBased when its
	// configured Dimension is DimensionWeight, and in place of an unset
	// (zero) RPM or TPM limit under those dimensions.
	Weight float64
	// Reason is filled in by Schedule on the returned candidate, naming the
	// strategy and signal that picked it (e.g. "capacity_based:rpm"). It is
	// observability only and never consulted by a caller's control flow.
	Reason string
}

// WeightDimension selects which signal CapacityBased weights its random
// choice by.
type WeightDimension string

const (
	DimensionRPM    WeightDimension = "rpm"
	DimensionTPM    WeightDimension = "tpm"
	DimensionWeight WeightDimension = "weight"
)

// Strategy is the name a caller selects by, kept as a string so
// configuration can name a strategy declaratively.
type Strategy string

const (
	StrategyRandom        Strategy = "random"
	StrategyCapacityBased Strategy = "capacity_based"
	StrategyLowestTPM     Strategy = "lowest_tpm"
	// StrategyLatency and StrategyCost are reserved for future strategies
	// that would need per-provider latency/cost telemetry this router does
	// not collect.
	StrategyLatency Strategy = "latency"
	StrategyCost    Strategy = "cost"
)

// Balancer picks one candidate to serve a request, or returns a
// NoProviderAvailable error if none qualifies.
type Balancer interface {
	Schedule(ctx context.Context, req Request) (*Candidate, error)
}

// Request bundles what a Balancer needs to score candidates for one
// scheduling decision.
type Request struct {
	ModelGroup string
	Minute     string
	TokenCount int
	Candidates []Candidate
	Quota      *quota.Manager
}

// New builds the Balancer for a named strategy. Unknown names fall back to
// Random, matching the reference implementation's behavior of always being
// able to schedule something rather than failing startup on a config typo.
func New(strategy Strategy) Balancer {
	switch strategy {
	case StrategyCapacityBased:
		return &CapacityBased{Dimension: DimensionRPM}
	case StrategyLowestTPM:
		return &LowestTPM{}
	default:
		return &Random{}
	}
}

func noProvider(modelGroup string) error {
	return rerrors.NoProviderAvailable(modelGroup)
}

// weightedPick does a cumulative-weight random selection. Returns nil if
// total weight is zero; callers fall back to an unweighted choice in that
// case, matching the reference implementation's behavior when every
// candidate has zero weight.
func weightedPick(candidates []Candidate, weight func(Candidate) float64) *Candidate {
	var total float64
	for _, c := range candidates {
		total += weight(c)
	}
	if total <= 0 {
		return nil
	}

	target := rand.Float64() * total
	var cumulative float64
	for i := range candidates {
		cumulative += weight(candidates[i])
		if cumulative >= target {
			return &candidates[i]
		}
	}
	return &candidates[len(candidates)-1]
}
