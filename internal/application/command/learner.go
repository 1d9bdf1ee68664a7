package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/learner"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// INIT LEARNER COMMAND
// One profile per learner, created once and never re-initialized.
// ══════════════════════════════════════════════════════════════════════════════

// InitLearnerCommand creates a learner profile.
type InitLearnerCommand struct {
	// LearnerID is the profile owner. The caller must be the learner.
	LearnerID string

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c InitLearnerCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("init_learner: learner_id is required")
	}
	return nil
}

// InitLearnerResult contains the created profile snapshot.
type InitLearnerResult struct {
	LearnerID     string
	InitializedAt time.Time
}

// InitLearnerHandler handles the InitLearnerCommand.
type InitLearnerHandler struct {
	store     Store
	publisher shared.EventPublisher
	clock     func() time.Time
}

// NewInitLearnerHandler creates a new InitLearnerHandler.
func NewInitLearnerHandler(store Store, publisher shared.EventPublisher) *InitLearnerHandler {
	return &InitLearnerHandler{store: store, publisher: publisher, clock: time.Now}
}

// Handle executes the init learner command.
func (h *InitLearnerHandler) Handle(ctx context.Context, cmd InitLearnerCommand) (*InitLearnerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("init_learner: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	owner, err := shared.NewLearnerID(cmd.LearnerID)
	if err != nil {
		return nil, err
	}

	profile, err := learner.NewProfile(owner, now)
	if err != nil {
		return nil, err
	}

	err = h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Learners.Create(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewLearnerInitializedEvent(owner.String())
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &InitLearnerResult{LearnerID: owner.String(), InitializedAt: now}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER REFERRAL COMMAND
// A referrer is set at most once, permanently. No reward is issued here;
// reward policy, if any, lives outside the ledger.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterReferralCommand records who referred a learner.
type RegisterReferralCommand struct {
	LearnerID  string
	ReferrerID string

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c RegisterReferralCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("register_referral: learner_id is required")
	}
	if c.ReferrerID == "" {
		return errors.New("register_referral: referrer_id is required")
	}
	return nil
}

// RegisterReferralResult contains the referrer's updated count.
type RegisterReferralResult struct {
	LearnerID     string
	ReferrerID    string
	ReferralCount uint16
}

// RegisterReferralHandler handles the RegisterReferralCommand.
type RegisterReferralHandler struct {
	store     Store
	publisher shared.EventPublisher
	clock     func() time.Time
}

// NewRegisterReferralHandler creates a new RegisterReferralHandler.
func NewRegisterReferralHandler(store Store, publisher shared.EventPublisher) *RegisterReferralHandler {
	return &RegisterReferralHandler{store: store, publisher: publisher, clock: time.Now}
}

// Handle executes the register referral command. Both profiles mutate in
// the same transaction: the referee gains a referrer, the referrer's count
// increments with checked arithmetic.
func (h *RegisterReferralHandler) Handle(ctx context.Context, cmd RegisterReferralCommand) (*RegisterReferralResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_referral: validation failed: %w", err)
	}

	if cmd.LearnerID == cmd.ReferrerID {
		return nil, shared.ErrSelfReferral
	}

	var count uint16
	err := h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		profile, err := repos.Learners.GetByOwner(ctx, shared.LearnerID(cmd.LearnerID))
		if err != nil {
			return err
		}

		referrer, err := repos.Learners.GetByOwner(ctx, shared.LearnerID(cmd.ReferrerID))
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.ErrReferrerNotFound
			}
			return err
		}

		if err := profile.SetReferrer(referrer.Owner); err != nil {
			return err
		}
		if err := referrer.IncrementReferrals(); err != nil {
			return err
		}
		count = referrer.ReferralCount

		if err := repos.Learners.Update(ctx, profile); err != nil {
			return err
		}
		return repos.Learners.Update(ctx, referrer)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewReferralRegisteredEvent(cmd.ReferrerID, cmd.LearnerID)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &RegisterReferralResult{
		LearnerID:     cmd.LearnerID,
		ReferrerID:    cmd.ReferrerID,
		ReferralCount: count,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// AWARD STREAK FREEZE COMMAND
// Backend signer grants one freeze credit.
// ══════════════════════════════════════════════════════════════════════════════

// AwardStreakFreezeCommand grants a freeze credit to a learner.
type AwardStreakFreezeCommand struct {
	// Actor must match the backend signer.
	Actor string

	LearnerID string

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c AwardStreakFreezeCommand) Validate() error {
	if c.Actor == "" {
		return errors.New("award_streak_freeze: actor is required")
	}
	if c.LearnerID == "" {
		return errors.New("award_streak_freeze: learner_id is required")
	}
	return nil
}

// AwardStreakFreezeResult contains the new freeze balance.
type AwardStreakFreezeResult struct {
	LearnerID        string
	FreezesRemaining uint8
}

// AwardStreakFreezeHandler handles the AwardStreakFreezeCommand.
type AwardStreakFreezeHandler struct {
	store     Store
	publisher shared.EventPublisher
	clock     func() time.Time
}

// NewAwardStreakFreezeHandler creates a new AwardStreakFreezeHandler.
func NewAwardStreakFreezeHandler(store Store, publisher shared.EventPublisher) *AwardStreakFreezeHandler {
	return &AwardStreakFreezeHandler{store: store, publisher: publisher, clock: time.Now}
}

// Handle executes the award streak freeze command.
func (h *AwardStreakFreezeHandler) Handle(ctx context.Context, cmd AwardStreakFreezeCommand) (*AwardStreakFreezeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("award_streak_freeze: validation failed: %w", err)
	}

	var remaining uint8
	err := h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		cfg, err := repos.Platform.Get(ctx)
		if err != nil {
			return err
		}
		if cfg.BackendSigner != cmd.Actor {
			return shared.ErrUnauthorized
		}

		profile, err := repos.Learners.GetByOwner(ctx, shared.LearnerID(cmd.LearnerID))
		if err != nil {
			return err
		}

		if err := profile.AwardFreeze(); err != nil {
			return err
		}
		remaining = profile.StreakFreezes

		return repos.Learners.Update(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewStreakFreezeAwardedEvent(cmd.LearnerID, remaining)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &AwardStreakFreezeResult{LearnerID: cmd.LearnerID, FreezesRemaining: remaining}, nil
}
