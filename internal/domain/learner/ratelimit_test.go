package learner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

func TestConsumeDailyXP_Budget(t *testing.T) {
	p := newTestProfile(t)
	now := 100 * day

	// ceiling=100: 60 fits, another 50 does not, next day resets.
	require.NoError(t, p.ConsumeDailyXP(60, now, 100))
	assert.Equal(t, uint32(60), p.XPEarnedToday)

	err := p.ConsumeDailyXP(50, now, 100)
	assert.ErrorIs(t, err, shared.ErrDailyXPLimitExceeded)
	assert.Equal(t, uint32(60), p.XPEarnedToday, "failed charge must not commit")

	require.NoError(t, p.ConsumeDailyXP(50, now+day, 100))
	assert.Equal(t, uint32(50), p.XPEarnedToday)
}

func TestConsumeDailyXP_ExactCeiling(t *testing.T) {
	p := newTestProfile(t)

	require.NoError(t, p.ConsumeDailyXP(100, 5*day, 100))
	assert.ErrorIs(t, p.ConsumeDailyXP(1, 5*day, 100), shared.ErrDailyXPLimitExceeded)
}

func TestConsumeDailyXP_Overflow(t *testing.T) {
	p := newTestProfile(t)
	p.XPEarnedToday = ^uint32(0)
	p.LastXPDay = 5

	err := p.ConsumeDailyXP(1, 5*day, ^uint32(0))
	assert.ErrorIs(t, err, shared.ErrOverflow)
}

func TestRemainingDailyXP(t *testing.T) {
	p := newTestProfile(t)
	require.NoError(t, p.ConsumeDailyXP(30, 5*day, 100))

	assert.Equal(t, uint32(70), p.RemainingDailyXP(5*day, 100))
	assert.Equal(t, uint32(100), p.RemainingDailyXP(6*day, 100), "next day restores full budget")
}
