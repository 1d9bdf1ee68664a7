package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayIndex(t *testing.T) {
	assert.Equal(t, int64(0), DayIndex(0))
	assert.Equal(t, int64(0), DayIndex(86399))
	assert.Equal(t, int64(1), DayIndex(86400))
	assert.Equal(t, int64(0), DayIndex(-5))
}

func TestSameDay(t *testing.T) {
	assert.True(t, SameDay(100, 86399))
	assert.False(t, SameDay(86399, 86400))
}

func TestGapDays(t *testing.T) {
	day := SecondsPerDay

	// Consecutive days: no gap.
	assert.Equal(t, int64(0), GapDays(0, day))

	// Two full days missed.
	assert.Equal(t, int64(2), GapDays(0, 3*day))

	// Same day or clock going backwards: no gap.
	assert.Equal(t, int64(0), GapDays(day, day+100))
	assert.Equal(t, int64(0), GapDays(3*day, day))
}

func TestStartAndEndOfDay(t *testing.T) {
	ts := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), NextDayStart(ts))
	assert.True(t, EndOfDay(ts).Before(NextDayStart(ts)))
}

func TestSecondsUntilDayEnd(t *testing.T) {
	assert.Equal(t, SecondsPerDay, SecondsUntilDayEnd(0))
	assert.Equal(t, int64(1), SecondsUntilDayEnd(86399))
}

func TestCooldownElapsed(t *testing.T) {
	assert.False(t, CooldownElapsed(0, 86399, 24*time.Hour))
	assert.True(t, CooldownElapsed(0, 86400, 24*time.Hour))
}
