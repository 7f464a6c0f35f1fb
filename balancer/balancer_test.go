package balancer

import (
	"context"
	"testing"

	"github.com/modelroute/llmrouter/quota"
	"github.com/modelroute/llmrouter/rerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minute = "202607311200"

func TestRandomPicksAmongCandidates(t *testing.T) {
	b := &Random{}
	req := Request{
		ModelGroup: "g",
		Candidates: []Candidate{{ProviderID: "a"}, {ProviderID: "b"}},
	}
	c, err := b.Schedule(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b"}, c.ProviderID)
}

func TestRandomNoCandidatesReturnsNoProviderAvailable(t *testing.T) {
	b := &Random{}
	_, err := b.Schedule(context.Background(), Request{ModelGroup: "g"})
	assert.Equal(t, rerrors.CodeNoProviderAvailable, rerrors.GetCode(err))
}

func TestCapacityBasedFiltersProvidersAtCeiling(t *testing.T) {
	q := quota.New()
	q.IncreaseRPMOccupied("g", "full", minute)

	b := &CapacityBased{Dimension: DimensionRPM}
	req := Request{
		ModelGroup: "g",
		Minute:     minute,
		Quota:      q,
		Candidates: []Candidate{
			{ProviderID: "full", RPMLimit: 1},
			{ProviderID: "open", RPMLimit: 10},
		},
	}

	c, err := b.Schedule(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "open", c.ProviderID)
}

func TestCapacityBasedAllAtCeilingReturnsNoProvider(t *testing.T) {
	q := quota.New()
	q.IncreaseRPMOccupied("g", "a", minute)

	b := &CapacityBased{Dimension: DimensionRPM}
	req := Request{
		ModelGroup: "g",
		Minute:     minute,
		Quota:      q,
		Candidates: []Candidate{{ProviderID: "a", RPMLimit: 1}},
	}

	_, err := b.Schedule(context.Background(), req)
	assert.Equal(t, rerrors.CodeNoProviderAvailable, rerrors.GetCode(err))
}

func TestCapacityBasedWeighsByConfiguredLimitNotHeadroom(t *testing.T) {
	q := quota.New()
	// "big" has almost no headroom left; "small" is nearly empty. Weighting
	// by remaining headroom would favor "small" heavily. Weighting by the
	// configured ceiling (what this balancer does) must favor "big" instead,
	// since its RPM ceiling is 10x larger.
	q.IncreaseRPMOccupied("g", "big", minute)
	for i := 0; i < 98; i++ {
		q.IncreaseRPMOccupied("g", "big", minute)
	}

	b := &CapacityBased{Dimension: DimensionRPM}
	req := Request{
		ModelGroup: "g",
		Minute:     minute,
		Quota:      q,
		Candidates: []Candidate{
			{ProviderID: "big", RPMLimit: 100},
			{ProviderID: "small", RPMLimit: 10},
		},
	}

	bigPicks := 0
	for i := 0; i < 200; i++ {
		c, err := b.Schedule(context.Background(), req)
		require.NoError(t, err)
		if c.ProviderID == "big" {
			bigPicks++
		}
	}
	assert.Greater(t, bigPicks, 150, "expected weighting by configured RPM limit to favor the larger ceiling")
}

func TestLowestTPMPicksLeastLoaded(t *testing.T) {
	q := quota.New()
	q.IncreaseTPMOccupied("g", "busy", minute, 900)
	q.IncreaseTPMOccupied("g", "idle", minute, 10)

	b := &LowestTPM{}
	req := Request{
		ModelGroup: "g",
		Minute:     minute,
		Quota:      q,
		TokenCount: 50,
		Candidates: []Candidate{
			{ProviderID: "busy", TPMLimit: 100000, RPMLimit: 1000},
			{ProviderID: "idle", TPMLimit: 100000, RPMLimit: 1000},
		},
	}

	c, err := b.Schedule(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "idle", c.ProviderID)
}

func TestLowestTPMExcludesProviderWithoutTokenHeadroom(t *testing.T) {
	q := quota.New()
	q.IncreaseTPMOccupied("g", "tight", minute, 950)

	b := &LowestTPM{}
	req := Request{
		ModelGroup: "g",
		Minute:     minute,
		Quota:      q,
		TokenCount: 100,
		Candidates: []Candidate{
			{ProviderID: "tight", TPMLimit: 1000, RPMLimit: 1000},
		},
	}

	_, err := b.Schedule(context.Background(), req)
	assert.Equal(t, rerrors.CodeNoProviderAvailable, rerrors.GetCode(err))
}

func TestNewFallsBackToRandomForUnknownStrategy(t *testing.T) {
	b := New(Strategy("nonsense"))
	_, ok := b.(*Random)
	assert.True(t, ok)
}
