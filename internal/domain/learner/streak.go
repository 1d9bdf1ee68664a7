package learner

// ══════════════════════════════════════════════════════════════════════════════
// STREAK ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// StreakOutcome classifies the result of advancing a streak.
type StreakOutcome int

const (
	// StreakUnchanged means the activity happened on an already-counted day.
	StreakUnchanged StreakOutcome = iota
	// StreakContinued means the streak grew by one without missed days.
	StreakContinued
	// StreakSavedByFreezes means missed days were covered by freeze credits.
	StreakSavedByFreezes
	// StreakBroken means the gap exceeded available freezes and the streak reset.
	StreakBroken
)

// String returns the string representation of the outcome.
func (o StreakOutcome) String() string {
	switch o {
	case StreakUnchanged:
		return "unchanged"
	case StreakContinued:
		return "continued"
	case StreakSavedByFreezes:
		return "saved_by_freezes"
	case StreakBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// StreakResult describes a streak advance.
type StreakResult struct {
	Outcome     StreakOutcome
	NewStreak   uint16
	FreezesUsed uint8
	OldStreak   uint16 // set on Broken
	DaysMissed  uint16 // set on Broken
	Milestone   uint16 // 7/30/100/365 when the new streak hits one, else 0
}

// Streak milestones, informational only. Rewards come from course and
// achievement parameters, not streak length.
var streakMilestones = [...]uint16{7, 30, 100, 365}

// checkMilestone returns the milestone matching streak, or 0.
func checkMilestone(streak uint16) uint16 {
	for _, m := range streakMilestones {
		if streak == m {
			return m
		}
	}
	return 0
}

// AdvanceStreak runs the day-over-day streak state machine for an activity
// at the given unix timestamp.
//
// Same-day repeat activity never double-counts: it is a no-op. Otherwise the
// gap of fully-missed days decides the outcome: zero gap continues the
// streak, a gap covered by freeze credits consumes exactly gap freezes and
// still continues (a save is a full continuation), and anything larger
// breaks the streak back to 1. LastActivityDate moves to now on every
// non-no-op path.
func (p *Profile) AdvanceStreak(now int64) StreakResult {
	today := dayIndex(now)
	lastDay := dayIndex(p.LastActivityDate)

	if today <= lastDay {
		return StreakResult{Outcome: StreakUnchanged, NewStreak: p.CurrentStreak}
	}

	gap := today - lastDay - 1

	var result StreakResult
	switch {
	case gap == 0:
		p.CurrentStreak++
		result = StreakResult{
			Outcome:   StreakContinued,
			NewStreak: p.CurrentStreak,
		}
	case gap <= int64(p.StreakFreezes):
		// A freeze bridges exactly one missed day; gap freezes bridge gap days.
		freezesUsed := uint8(gap)
		p.StreakFreezes -= freezesUsed
		p.CurrentStreak++
		result = StreakResult{
			Outcome:     StreakSavedByFreezes,
			NewStreak:   p.CurrentStreak,
			FreezesUsed: freezesUsed,
		}
	default:
		oldStreak := p.CurrentStreak
		p.CurrentStreak = 1
		result = StreakResult{
			Outcome:    StreakBroken,
			NewStreak:  1,
			OldStreak:  oldStreak,
			DaysMissed: uint16(gap),
		}
	}

	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	p.LastActivityDate = now

	result.Milestone = checkMilestone(p.CurrentStreak)
	return result
}
