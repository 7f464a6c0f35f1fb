package balancer

import (
	"context"
	"math"

	"github.com/modelroute/llmrouter/quota"
)

// LowestTPM filters candidates that have headroom for both the incoming
// request's token count and one more RPM slot, then picks the one with the
// least current TPM usage. Grounded on the reference implementation's
// lowest-TPM balancer.
type LowestTPM struct{}

func (l *LowestTPM) Schedule(_ context.Context, req Request) (*Candidate, error) {
	var best *Candidate
	lowest := math.Inf(1)

	for i := range req.Candidates {
		cand := req.Candidates[i]
		if !l.isAvailable(cand, req) {
			continue
		}
		current := float64(req.Quota.UsageAt(quota.TPM, req.ModelGroup, cand.ProviderID, req.Minute).Total())
		if current < lowest {
			lowest = current
			best = &req.Candidates[i]
		}
	}

	if best == nil {
		return nil, noProvider(req.ModelGroup)
	}
	best.Reason = "lowest_tpm"
	return best, nil
}

func (l *LowestTPM) isAvailable(cand Candidate, req Request) bool {
	if cand.TPMLimit > 0 {
		tpmUsage := req.Quota.UsageAt(quota.TPM, req.ModelGroup, cand.ProviderID, req.Minute)
		if tpmUsage.Total()+req.TokenCount > cand.TPMLimit {
			return false
		}
	}
	if cand.RPMLimit > 0 {
		rpmUsage := req.Quota.UsageAt(quota.RPM, req.ModelGroup, cand.ProviderID, req.Minute)
		if rpmUsage.Total()+1 > cand.RPMLimit {
			return false
		}
	}
	return true
}
