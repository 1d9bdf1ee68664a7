package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/issuing"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FINALIZE COURSE COMMAND
// Stamps the completion timestamp once every lesson bit is set, bumps the
// course completion counter, and pays the creator reward when the course has
// crossed its completion threshold. Lesson XP was already paid per lesson;
// finalize mints only the creator's share.
// ══════════════════════════════════════════════════════════════════════════════

// FinalizeCourseCommand contains the data to finalize a completed course.
type FinalizeCourseCommand struct {
	// Actor must match the backend signer.
	Actor string

	LearnerID string
	CourseID  string

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c FinalizeCourseCommand) Validate() error {
	if c.Actor == "" {
		return errors.New("finalize_course: actor is required")
	}
	if c.LearnerID == "" {
		return errors.New("finalize_course: learner_id is required")
	}
	if c.CourseID == "" {
		return errors.New("finalize_course: course_id is required")
	}
	return nil
}

// FinalizeCourseResult contains the finalization outcome.
type FinalizeCourseResult struct {
	LearnerID        string
	CourseID         string
	CompletedAt      time.Time
	TotalCompletions uint32
	CreatorRewardXP  uint32
}

// FinalizeCourseHandler handles the FinalizeCourseCommand.
type FinalizeCourseHandler struct {
	store     Store
	publisher shared.EventPublisher
	rewards   issuing.RewardIssuer
	clock     func() time.Time
}

// NewFinalizeCourseHandler creates a new FinalizeCourseHandler.
func NewFinalizeCourseHandler(store Store, publisher shared.EventPublisher, rewards issuing.RewardIssuer) *FinalizeCourseHandler {
	return &FinalizeCourseHandler{store: store, publisher: publisher, rewards: rewards, clock: time.Now}
}

// Handle executes the finalize course command.
func (h *FinalizeCourseHandler) Handle(ctx context.Context, cmd FinalizeCourseCommand) (*FinalizeCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("finalize_course: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	learnerID := shared.LearnerID(cmd.LearnerID)
	courseID := shared.CourseID(cmd.CourseID)

	var (
		totalCompletions uint32
		creatorXP        uint32
		creatorID        string
		totalXP          uint32
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

		if err := enr.Finalize(crs.LessonCount, now.Unix()); err != nil {
			return err
		}

		rewardDue, err := crs.RecordCompletion()
		if err != nil {
			return err
		}
		totalCompletions = crs.TotalCompletions
		creatorID = crs.Creator.String()
		totalXP = uint32(crs.LessonCount) * crs.XPPerLesson

		if err := repos.Enrollments.Update(ctx, enr); err != nil {
			return err
		}
		if err := repos.Courses.Update(ctx, crs); err != nil {
			return err
		}

		if rewardDue && crs.CreatorRewardXP > 0 {
			creatorXP = crs.CreatorRewardXP
			auth := issuing.MintAuthorization{Season: cfg.CurrentSeason, Mint: cfg.CurrentMint}
			if err := h.rewards.Mint(ctx, crs.Creator, creatorXP, auth); err != nil {
				return fmt.Errorf("%w: %w", shared.ErrRewardMintFailed, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewCourseFinalizedEvent(cmd.LearnerID, cmd.CourseID, totalXP, creatorID, creatorXP)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &FinalizeCourseResult{
		LearnerID:        cmd.LearnerID,
		CourseID:         cmd.CourseID,
		CompletedAt:      now,
		TotalCompletions: totalCompletions,
		CreatorRewardXP:  creatorXP,
	}, nil
}
