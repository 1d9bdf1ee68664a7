// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/learner"
	"github.com/academy-hub/academy-ledger/internal/domain/platform"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEARNER PROGRESS QUERY
// The learner dashboard read: streak state, today's XP budget, achievements,
// referral stats, and a per-enrollment progress summary in one shot.
// ══════════════════════════════════════════════════════════════════════════════

// GetLearnerProgressQuery contains the parameters for a learner progress read.
type GetLearnerProgressQuery struct {
	LearnerID string

	// IncludeEnrollments adds per-course progress rows to the result.
	IncludeEnrollments bool
}

// Validate validates the query.
func (q GetLearnerProgressQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_learner_progress: learner_id is required")
	}
	return nil
}

// EnrollmentProgress is one course row in the learner progress view.
type EnrollmentProgress struct {
	CourseID         string `json:"course_id"`
	EnrolledVersion  uint16 `json:"enrolled_version"`
	LessonsCompleted uint8  `json:"lessons_completed"`
	Completed        bool   `json:"completed"`
	BonusClaimed     bool   `json:"bonus_claimed"`
	CredentialAsset  string `json:"credential_asset,omitempty"`
}

// LearnerProgressResult is the learner dashboard snapshot.
type LearnerProgressResult struct {
	LearnerID        string `json:"learner_id"`
	CurrentStreak    uint16 `json:"current_streak"`
	LongestStreak    uint16 `json:"longest_streak"`
	StreakFreezes    uint8  `json:"streak_freezes"`
	StreakAtRisk     bool   `json:"streak_at_risk"`
	XPEarnedToday    uint32 `json:"xp_earned_today"`
	RemainingDailyXP uint32 `json:"remaining_daily_xp"`
	AchievementCount uint16 `json:"achievement_count"`
	ReferralCount    uint16 `json:"referral_count"`
	HasReferrer      bool   `json:"has_referrer"`

	Enrollments []EnrollmentProgress `json:"enrollments,omitempty"`
}

// GetLearnerProgressHandler handles the GetLearnerProgressQuery.
type GetLearnerProgressHandler struct {
	learners    learner.Repository
	enrollments enrollment.Repository
	platform    platform.Repository
	clock       func() time.Time
}

// NewGetLearnerProgressHandler creates a new GetLearnerProgressHandler.
func NewGetLearnerProgressHandler(
	learners learner.Repository,
	enrollments enrollment.Repository,
	platformRepo platform.Repository,
) *GetLearnerProgressHandler {
	return &GetLearnerProgressHandler{
		learners:    learners,
		enrollments: enrollments,
		platform:    platformRepo,
		clock:       time.Now,
	}
}

// Handle executes the learner progress query.
func (h *GetLearnerProgressHandler) Handle(ctx context.Context, q GetLearnerProgressQuery) (*LearnerProgressResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_learner_progress: validation failed: %w", err)
	}

	now := h.clock().UTC()

	profile, err := h.learners.GetByOwner(ctx, shared.LearnerID(q.LearnerID))
	if err != nil {
		return nil, err
	}

	cfg, err := h.platform.Get(ctx)
	if err != nil {
		return nil, err
	}

	result := &LearnerProgressResult{
		LearnerID:        profile.Owner.String(),
		CurrentStreak:    profile.CurrentStreak,
		LongestStreak:    profile.LongestStreak,
		StreakFreezes:    profile.StreakFreezes,
		StreakAtRisk:     streakAtRisk(profile, now.Unix()),
		XPEarnedToday:    earnedToday(profile, now.Unix()),
		RemainingDailyXP: profile.RemainingDailyXP(now.Unix(), cfg.MaxDailyXP),
		AchievementCount: profile.ClaimedAchievements.Count(),
		ReferralCount:    profile.ReferralCount,
		HasReferrer:      profile.HasReferrer,
	}

	if q.IncludeEnrollments {
		list, err := h.enrollments.ListByLearner(ctx, profile.Owner)
		if err != nil {
			return nil, err
		}
		result.Enrollments = make([]EnrollmentProgress, 0, len(list))
		for _, e := range list {
			result.Enrollments = append(result.Enrollments, EnrollmentProgress{
				CourseID:         e.Course.String(),
				EnrolledVersion:  e.EnrolledVersion,
				LessonsCompleted: e.CompletedLessonCount(),
				Completed:        e.IsCompleted(),
				BonusClaimed:     e.BonusClaimed,
				CredentialAsset:  e.CredentialAsset,
			})
		}
	}

	return result, nil
}

// streakAtRisk reports whether the streak will break at the next UTC day
// boundary unless the learner is active today.
func streakAtRisk(p *learner.Profile, now int64) bool {
	if p.CurrentStreak == 0 {
		return false
	}
	lastDay := p.LastActivityDate / 86400
	today := now / 86400
	// Active today means safe; a yesterday-only streak is at risk, and a
	// larger gap is only safe as far as freezes cover it.
	gap := today - lastDay
	return gap >= 1 && gap > int64(p.StreakFreezes)
}

// earnedToday returns the XP already counted against today's budget, zero
// when the stored total belongs to a previous day.
func earnedToday(p *learner.Profile, now int64) uint32 {
	if now/86400 > p.LastXPDay {
		return 0
	}
	return p.XPEarnedToday
}
