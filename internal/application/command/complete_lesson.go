package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/issuing"
	"github.com/academy-hub/academy-ledger/internal/domain/learner"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE LESSON COMMAND
// The hot path. One call marks the lesson bit, charges the daily XP budget,
// advances the streak, and mints the per-lesson reward, all atomically. A
// failed mint aborts the transaction so no partial progress is recorded.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteLessonCommand contains the data to record a lesson completion.
type CompleteLessonCommand struct {
	// Actor must match the backend signer.
	Actor string

	LearnerID   string
	CourseID    string
	LessonIndex uint8

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c CompleteLessonCommand) Validate() error {
	if c.Actor == "" {
		return errors.New("complete_lesson: actor is required")
	}
	if c.LearnerID == "" {
		return errors.New("complete_lesson: learner_id is required")
	}
	if c.CourseID == "" {
		return errors.New("complete_lesson: course_id is required")
	}
	return nil
}

// CompleteLessonResult contains the progress snapshot after the completion.
type CompleteLessonResult struct {
	LearnerID        string
	CourseID         string
	LessonIndex      uint8
	XPEarned         uint32
	LessonsCompleted uint8
	CourseCompleted  bool
	CurrentStreak    uint16
	StreakOutcome    string
	RemainingDailyXP uint32
}

// CompleteLessonHandler handles the CompleteLessonCommand.
type CompleteLessonHandler struct {
	store     Store
	publisher shared.EventPublisher
	rewards   issuing.RewardIssuer
	clock     func() time.Time
}

// NewCompleteLessonHandler creates a new CompleteLessonHandler.
func NewCompleteLessonHandler(store Store, publisher shared.EventPublisher, rewards issuing.RewardIssuer) *CompleteLessonHandler {
	return &CompleteLessonHandler{store: store, publisher: publisher, rewards: rewards, clock: time.Now}
}

// Handle executes the complete lesson command.
func (h *CompleteLessonHandler) Handle(ctx context.Context, cmd CompleteLessonCommand) (*CompleteLessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_lesson: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	learnerID := shared.LearnerID(cmd.LearnerID)
	courseID := shared.CourseID(cmd.CourseID)

	var (
		result           CompleteLessonResult
		streak           learner.StreakResult
		freezesRemaining uint8
	)
	err := h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		cfg, err := repos.Platform.Get(ctx)
		if err != nil {
			return err
		}
		if cfg.BackendSigner != cmd.Actor {
			return shared.ErrUnauthorized
		}
		if err := cfg.RequireActiveSeason(); err != nil {
			return err
		}

		// Deactivation only blocks new enrollments; existing learners keep
		// completing lessons.
		crs, err := repos.Courses.GetByID(ctx, courseID)
		if err != nil {
			return err
		}

		enr, err := repos.Enrollments.Get(ctx, learnerID, courseID)
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.ErrNotEnrolled
			}
			return err
		}

		profile, err := repos.Learners.GetByOwner(ctx, learnerID)
		if err != nil {
			return err
		}

		if err := enr.CompleteLesson(cmd.LessonIndex, crs.LessonCount); err != nil {
			return err
		}

		if err := profile.ConsumeDailyXP(crs.XPPerLesson, now.Unix(), cfg.MaxDailyXP); err != nil {
			return err
		}

		streak = profile.AdvanceStreak(now.Unix())
		freezesRemaining = profile.StreakFreezes

		if err := repos.Enrollments.Update(ctx, enr); err != nil {
			return err
		}
		if err := repos.Learners.Update(ctx, profile); err != nil {
			return err
		}

		if crs.XPPerLesson > 0 {
			auth := issuing.MintAuthorization{Season: cfg.CurrentSeason, Mint: cfg.CurrentMint}
			if err := h.rewards.Mint(ctx, learnerID, crs.XPPerLesson, auth); err != nil {
				return fmt.Errorf("%w: %w", shared.ErrRewardMintFailed, err)
			}
		}

		result = CompleteLessonResult{
			LearnerID:        cmd.LearnerID,
			CourseID:         cmd.CourseID,
			LessonIndex:      cmd.LessonIndex,
			XPEarned:         crs.XPPerLesson,
			LessonsCompleted: enr.CompletedLessonCount(),
			CourseCompleted:  enr.AllLessonsCompleted(crs.LessonCount),
			CurrentStreak:    profile.CurrentStreak,
			StreakOutcome:    streak.Outcome.String(),
			RemainingDailyXP: profile.RemainingDailyXP(now.Unix(), cfg.MaxDailyXP),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	completed := shared.NewLessonCompletedEvent(
		cmd.LearnerID, cmd.CourseID, cmd.LessonIndex, result.XPEarned, result.CurrentStreak,
	)
	if cmd.CorrelationID != "" {
		completed.BaseEvent = completed.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(completed)

	switch streak.Outcome {
	case learner.StreakBroken:
		broken := shared.NewStreakBrokenEvent(cmd.LearnerID, streak.OldStreak, streak.DaysMissed)
		if cmd.CorrelationID != "" {
			broken.BaseEvent = broken.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.publisher.Publish(broken)
	case learner.StreakSavedByFreezes:
		saved := shared.NewStreakFreezesUsedEvent(cmd.LearnerID, streak.FreezesUsed, freezesRemaining)
		if cmd.CorrelationID != "" {
			saved.BaseEvent = saved.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.publisher.Publish(saved)
	}

	if streak.Milestone > 0 {
		milestone := shared.NewStreakMilestoneEvent(cmd.LearnerID, streak.Milestone)
		if cmd.CorrelationID != "" {
			milestone.BaseEvent = milestone.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.publisher.Publish(milestone)
	}

	return &result, nil
}
