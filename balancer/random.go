package balancer

import (
	"context"
	"math/rand"
)

// Random picks uniformly among every candidate, without consulting quota
// usage at all. Grounded on the reference implementation's random
// strategy, which is exactly random.choice over the input list.
type Random struct{}

func (r *Random) Schedule(_ context.Context, req Request) (*Candidate, error) {
	if len(req.Candidates) == 0 {
		return nil, noProvider(req.ModelGroup)
	}
	c := req.Candidates[rand.Intn(len(req.Candidates))]
	c.Reason = "random"
	return &c, nil
}
