package health

import (
	"testing"

	"github.com/modelroute/llmrouter/rerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minute = "202607311200"

func TestCriticalErrorAlwaysCoolsDown(t *testing.T) {
	m := New()
	triggered := m.RecordFailure("openai", minute, rerrors.New(rerrors.CodeRateLimited, "429"))
	assert.True(t, triggered)
	assert.False(t, m.IsAvailable("openai"))
}

func TestTemporaryErrorNeverCountsOrCoolsDown(t *testing.T) {
	m := New()
	for i := 0; i < 10; i++ {
		triggered := m.RecordFailure("openai", minute, rerrors.New(rerrors.CodeRequestTimeout, "timeout"))
		assert.False(t, triggered)
	}
	assert.True(t, m.IsAvailable("openai"))
}

func TestClientErrorCoolsDownOnlyAfterAllowance(t *testing.T) {
	m := New(WithPolicy(AllowedFailsPolicy{GeneralAllowedFails: 2}))

	err := rerrors.New(rerrors.CodeInvalidRequest, "bad request")
	assert.False(t, m.RecordFailure("openai", minute, err))
	assert.False(t, m.RecordFailure("openai", minute, err))
	assert.True(t, m.RecordFailure("openai", minute, err))
	assert.False(t, m.IsAvailable("openai"))
}

func TestFailCounterIsSharedAcrossClientErrorCodes(t *testing.T) {
	m := New(WithPolicy(AllowedFailsPolicy{GeneralAllowedFails: 3}))

	assert.False(t, m.RecordFailure("openai", minute, rerrors.New(rerrors.CodeInvalidRequest, "bad request")))
	assert.False(t, m.RecordFailure("openai", minute, rerrors.New(rerrors.CodeContentPolicy, "flagged")))
	assert.False(t, m.RecordFailure("openai", minute, rerrors.New(rerrors.CodeInternalServer, "500")))
	assert.True(t, m.RecordFailure("openai", minute, rerrors.New(rerrors.CodeInvalidRequest, "bad request")))
	assert.False(t, m.IsAvailable("openai"))
}

func TestPerCodeOverrideBeatsGeneralAllowance(t *testing.T) {
	zero := 0
	m := New(WithPolicy(AllowedFailsPolicy{
		GeneralAllowedFails:        10,
		InvalidRequestAllowedFails: &zero,
	}))

	err := rerrors.New(rerrors.CodeInvalidRequest, "bad request")
	assert.True(t, m.RecordFailure("openai", minute, err))
}

func TestAvailableProvidersFiltersCooledDown(t *testing.T) {
	m := New()
	m.RecordFailure("openai", minute, rerrors.New(rerrors.CodeRateLimited, "429"))

	avail := m.AvailableProviders([]string{"openai", "anthropic"})
	assert.Equal(t, []string{"anthropic"}, avail)
}

func TestClearCooldownRestoresAvailability(t *testing.T) {
	m := New()
	m.RecordFailure("openai", minute, rerrors.New(rerrors.CodeRateLimited, "429"))
	require.False(t, m.IsAvailable("openai"))

	m.ClearCooldown("openai")
	assert.True(t, m.IsAvailable("openai"))
}

func TestLastCooldownReportsCode(t *testing.T) {
	m := New()
	m.RecordFailure("openai", minute, rerrors.New(rerrors.CodeAuthentication, "401"))

	state, ok := m.LastCooldown("openai")
	require.True(t, ok)
	assert.Equal(t, rerrors.CodeAuthentication, state.Code)
}
