package learner

import (
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// Daily XP budgets are accounted in UTC epoch days (unix / 86400), not
// learner-local days. A learner inactive for N days simply resets on next
// activity, so no sweep job is required for correctness.
const secondsPerDay int64 = 86400

// dayIndex returns the UTC epoch-day number for a unix timestamp.
func dayIndex(unix int64) int64 {
	if unix < 0 {
		return 0
	}
	return unix / secondsPerDay
}

// ConsumeDailyXP charges amount against the learner's daily XP budget.
// Crossing a day boundary resets the running total before the charge.
// Fails with ErrOverflow on arithmetic overflow and ErrDailyXPLimitExceeded
// when the new total would exceed maxDailyXP; on failure nothing is committed.
func (p *Profile) ConsumeDailyXP(amount uint32, now int64, maxDailyXP uint32) error {
	today := dayIndex(now)

	earned := p.XPEarnedToday
	if today > p.LastXPDay {
		earned = 0
	}

	newTotal, err := shared.CheckedAddU32(earned, amount)
	if err != nil {
		return shared.WrapError("learner", "ConsumeDailyXP", shared.ErrOverflow, "daily XP overflow", err)
	}
	if newTotal > maxDailyXP {
		return shared.ErrDailyXPLimitExceeded
	}

	if today > p.LastXPDay {
		p.LastXPDay = today
	}
	p.XPEarnedToday = newTotal
	return nil
}

// RemainingDailyXP returns how much XP the learner can still earn today.
func (p *Profile) RemainingDailyXP(now int64, maxDailyXP uint32) uint32 {
	if dayIndex(now) > p.LastXPDay {
		return maxDailyXP
	}
	if p.XPEarnedToday >= maxDailyXP {
		return 0
	}
	return maxDailyXP - p.XPEarnedToday
}
