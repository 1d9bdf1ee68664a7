// Package learner contains the learner profile aggregate: streak state,
// daily XP budget, claimed achievements, and referral bookkeeping.
// This is core business logic - no external dependencies.
package learner

import (
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: LEARNER PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Profile is the per-learner aggregate. One profile per learner, created
// once and never re-initialized.
type Profile struct {
	// Owner is the learner identity. Immutable after creation.
	Owner shared.LearnerID

	// CurrentStreak is the consecutive-day activity streak.
	CurrentStreak uint16

	// LongestStreak is the longest streak ever reached.
	LongestStreak uint16

	// LastActivityDate is the unix timestamp of the last streak-advancing
	// activity. Zero means no activity yet.
	LastActivityDate int64

	// StreakFreezes is the consumable freeze credit balance.
	StreakFreezes uint8

	// ClaimedAchievements tracks which of the 256 achievement slots were claimed.
	ClaimedAchievements shared.BitSet256

	// XPEarnedToday and LastXPDay back the daily rate limiter.
	XPEarnedToday uint32
	LastXPDay     int64

	// ReferralCount counts successful referrals made by this learner.
	ReferralCount uint16

	// HasReferrer is set at most once, permanently.
	HasReferrer bool

	// Referrer is the learner who referred this one. Empty when HasReferrer
	// is false.
	Referrer shared.LearnerID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile creates a fresh learner profile.
func NewProfile(owner shared.LearnerID, now time.Time) (*Profile, error) {
	if !owner.IsValid() {
		return nil, shared.NewDomainError("learner", "NewProfile", shared.ErrInvalidID, "invalid learner ID")
	}
	return &Profile{
		Owner:               owner,
		ClaimedAchievements: shared.NewBitSet256(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// AchievementClaimed reports whether the achievement slot was already claimed.
func (p *Profile) AchievementClaimed(index uint8) bool {
	return p.ClaimedAchievements.Test(uint16(index))
}

// ClaimAchievement marks an achievement slot and returns the awarded XP.
// The requested amount is never trusted: it is capped at ceiling. The capped
// amount is consumed from the daily budget before the bit is marked, so a
// rate-limited claim leaves the profile unchanged.
func (p *Profile) ClaimAchievement(index uint8, requestedXP, ceiling uint32, now int64, maxDailyXP uint32) (uint32, error) {
	if p.AchievementClaimed(index) {
		return 0, shared.ErrAchievementAlreadyClaimed
	}

	award := shared.MinU32(requestedXP, ceiling)
	if err := p.ConsumeDailyXP(award, now, maxDailyXP); err != nil {
		return 0, err
	}

	p.ClaimedAchievements.Set(uint16(index))
	return award, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REFERRALS
// ══════════════════════════════════════════════════════════════════════════════

// SetReferrer records this learner's referrer. Settable exactly once;
// self-referral is rejected.
func (p *Profile) SetReferrer(referrer shared.LearnerID) error {
	if referrer == p.Owner {
		return shared.ErrSelfReferral
	}
	if p.HasReferrer {
		return shared.ErrAlreadyReferred
	}
	p.HasReferrer = true
	p.Referrer = referrer
	return nil
}

// IncrementReferrals bumps the referral counter with checked arithmetic.
func (p *Profile) IncrementReferrals() error {
	n, err := shared.CheckedIncU16(p.ReferralCount)
	if err != nil {
		return shared.WrapError("learner", "IncrementReferrals", shared.ErrOverflow, "referral count overflow", err)
	}
	p.ReferralCount = n
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK FREEZES
// ══════════════════════════════════════════════════════════════════════════════

// AwardFreeze grants one streak freeze credit with checked arithmetic.
func (p *Profile) AwardFreeze() error {
	n, err := shared.CheckedAddU8(p.StreakFreezes, 1)
	if err != nil {
		return shared.WrapError("learner", "AwardFreeze", shared.ErrOverflow, "freeze balance overflow", err)
	}
	p.StreakFreezes = n
	return nil
}
