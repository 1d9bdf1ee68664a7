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
// CLAIM COMPLETION BONUS COMMAND
// One-shot bonus for a finalized course, claimed by the learner. The bonus
// goes through the same daily XP budget as lesson rewards.
// ══════════════════════════════════════════════════════════════════════════════

// ClaimCompletionBonusCommand contains the data to claim a completion bonus.
type ClaimCompletionBonusCommand struct {
	// Actor must be the learner themselves.
	Actor string

	LearnerID string
	CourseID  string

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c ClaimCompletionBonusCommand) Validate() error {
	if c.Actor == "" {
		return errors.New("claim_completion_bonus: actor is required")
	}
	if c.LearnerID == "" {
		return errors.New("claim_completion_bonus: learner_id is required")
	}
	if c.CourseID == "" {
		return errors.New("claim_completion_bonus: course_id is required")
	}
	return nil
}

// ClaimCompletionBonusResult contains the minted bonus.
type ClaimCompletionBonusResult struct {
	LearnerID string
	CourseID  string
	BonusXP   uint32
	ClaimedAt time.Time
}

// ClaimCompletionBonusHandler handles the ClaimCompletionBonusCommand.
type ClaimCompletionBonusHandler struct {
	store     Store
	publisher shared.EventPublisher
	rewards   issuing.RewardIssuer
	clock     func() time.Time
}

// NewClaimCompletionBonusHandler creates a new ClaimCompletionBonusHandler.
func NewClaimCompletionBonusHandler(store Store, publisher shared.EventPublisher, rewards issuing.RewardIssuer) *ClaimCompletionBonusHandler {
	return &ClaimCompletionBonusHandler{store: store, publisher: publisher, rewards: rewards, clock: time.Now}
}

// Handle executes the claim completion bonus command.
func (h *ClaimCompletionBonusHandler) Handle(ctx context.Context, cmd ClaimCompletionBonusCommand) (*ClaimCompletionBonusResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("claim_completion_bonus: validation failed: %w", err)
	}
	if cmd.Actor != cmd.LearnerID {
		return nil, shared.ErrForbidden
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	learnerID := shared.LearnerID(cmd.LearnerID)
	courseID := shared.CourseID(cmd.CourseID)

	var bonus uint32
	err := h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		cfg, err := repos.Platform.Get(ctx)
		if err != nil {
			return err
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

		profile, err := repos.Learners.GetByOwner(ctx, learnerID)
		if err != nil {
			return err
		}

		if err := enr.ClaimBonus(); err != nil {
			return err
		}

		bonus = crs.CompletionBonusXP
		if bonus > 0 {
			if err := profile.ConsumeDailyXP(bonus, now.Unix(), cfg.MaxDailyXP); err != nil {
				return err
			}
		}

		if err := repos.Enrollments.Update(ctx, enr); err != nil {
			return err
		}
		if err := repos.Learners.Update(ctx, profile); err != nil {
			return err
		}

		if bonus > 0 {
			auth := issuing.MintAuthorization{Season: cfg.CurrentSeason, Mint: cfg.CurrentMint}
			if err := h.rewards.Mint(ctx, learnerID, bonus, auth); err != nil {
				return fmt.Errorf("%w: %w", shared.ErrRewardMintFailed, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewCompletionBonusClaimedEvent(cmd.LearnerID, cmd.CourseID, bonus)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &ClaimCompletionBonusResult{
		LearnerID: cmd.LearnerID,
		CourseID:  cmd.CourseID,
		BonusXP:   bonus,
		ClaimedAt: now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLAIM ACHIEVEMENT COMMAND
// Backend-attested achievement, one bit per index, reward capped by the
// platform's per-achievement ceiling and charged against the daily budget.
// ══════════════════════════════════════════════════════════════════════════════

// ClaimAchievementCommand contains the data to claim an achievement.
type ClaimAchievementCommand struct {
	// Actor must match the backend signer.
	Actor string

	LearnerID        string
	AchievementIndex uint8
	RequestedXP      uint32

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c ClaimAchievementCommand) Validate() error {
	if c.Actor == "" {
		return errors.New("claim_achievement: actor is required")
	}
	if c.LearnerID == "" {
		return errors.New("claim_achievement: learner_id is required")
	}
	return nil
}

// ClaimAchievementResult contains the awarded XP after capping.
type ClaimAchievementResult struct {
	LearnerID        string
	AchievementIndex uint8
	AwardedXP        uint32
	ClaimedAt        time.Time
}

// ClaimAchievementHandler handles the ClaimAchievementCommand.
type ClaimAchievementHandler struct {
	store     Store
	publisher shared.EventPublisher
	rewards   issuing.RewardIssuer
	clock     func() time.Time
}

// NewClaimAchievementHandler creates a new ClaimAchievementHandler.
func NewClaimAchievementHandler(store Store, publisher shared.EventPublisher, rewards issuing.RewardIssuer) *ClaimAchievementHandler {
	return &ClaimAchievementHandler{store: store, publisher: publisher, rewards: rewards, clock: time.Now}
}

// Handle executes the claim achievement command. The requested amount is
// capped silently, not rejected, so a generous backend request degrades to
// the configured ceiling.
func (h *ClaimAchievementHandler) Handle(ctx context.Context, cmd ClaimAchievementCommand) (*ClaimAchievementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("claim_achievement: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	learnerID := shared.LearnerID(cmd.LearnerID)

	var awarded uint32
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

		profile, err := repos.Learners.GetByOwner(ctx, learnerID)
		if err != nil {
			return err
		}

		awarded, err = profile.ClaimAchievement(
			cmd.AchievementIndex, cmd.RequestedXP, cfg.MaxAchievementXP, now.Unix(), cfg.MaxDailyXP,
		)
		if err != nil {
			return err
		}

		if err := repos.Learners.Update(ctx, profile); err != nil {
			return err
		}

		if awarded > 0 {
			auth := issuing.MintAuthorization{Season: cfg.CurrentSeason, Mint: cfg.CurrentMint}
			if err := h.rewards.Mint(ctx, learnerID, awarded, auth); err != nil {
				return fmt.Errorf("%w: %w", shared.ErrRewardMintFailed, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewAchievementClaimedEvent(cmd.LearnerID, cmd.AchievementIndex, awarded)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &ClaimAchievementResult{
		LearnerID:        cmd.LearnerID,
		AchievementIndex: cmd.AchievementIndex,
		AwardedXP:        awarded,
		ClaimedAt:        now,
	}, nil
}
