package balancer

import (
	"context"
	"math/rand"

	"github.com/modelroute/llmrouter/quota"
)

// CapacityBased filters out any candidate that has no RPM headroom left for
// one more request, then picks among the rest weighted by Dimension. It is
// grounded on the reference implementation's capacity-based balancer,
// which does the same filter-then-weighted-choice in two steps.
type CapacityBased struct {
	Dimension WeightDimension
}

func (c *CapacityBased) Schedule(_ context.Context, req Request) (*Candidate, error) {
	filtered := c.filterOverLimit(req)
	if len(filtered) == 0 {
		return nil, noProvider(req.ModelGroup)
	}

	dim := c.Dimension
	if dim == "" {
		dim = DimensionRPM
	}

	picked := weightedPick(filtered, func(cand Candidate) float64 {
		return c.weightOf(cand, dim)
	})
	if picked != nil {
		picked.Reason = "capacity_based:" + string(dim)
		return picked, nil
	}

	// Every weight was zero (e.g. no candidate has a limit set under the
	// chosen dimension and none has a positive Weight) - fall back to an
	// unweighted choice rather than refusing to schedule at all.
	chosen := filtered[rand.Intn(len(filtered))]
	chosen.Reason = "capacity_based:" + string(dim) + ":fallback"
	return &chosen, nil
}

func (c *CapacityBased) filterOverLimit(req Request) []Candidate {
	out := make([]Candidate, 0, len(req.Candidates))
	for _, cand := range req.Candidates {
		if cand.RPMLimit <= 0 {
			out = append(out, cand)
			continue
		}
		usage := req.Quota.UsageAt(quota.RPM, req.ModelGroup, cand.ProviderID, req.Minute)
		if usage.Total()+1 <= cand.RPMLimit {
			out = append(out, cand)
		}
	}
	return out
}

// weightOf returns a candidate's selection weight for dim: its configured
// ceiling, not its remaining headroom under that ceiling. A provider with
// twice the RPM ceiling of another should receive twice the traffic share
// even when both currently sit at the same fraction of their own limit;
// over-limit candidates are already excluded by filterOverLimit before
// weightOf ever runs.
func (c *CapacityBased) weightOf(cand Candidate, dim WeightDimension) float64 {
	switch dim {
	case DimensionTPM:
		if cand.TPMLimit <= 0 {
			return cand.Weight
		}
		return float64(cand.TPMLimit)
	case DimensionRPM:
		if cand.RPMLimit <= 0 {
			return cand.Weight
		}
		return float64(cand.RPMLimit)
	default:
		return cand.Weight
	}
}
