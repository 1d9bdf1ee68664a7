package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/platform"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// INITIALIZE PLATFORM COMMAND
// One-time creation of the config singleton. Until the first season opens,
// the season stays closed and nothing can be minted.
// ══════════════════════════════════════════════════════════════════════════════

// InitializePlatformCommand contains the data to initialize the platform.
type InitializePlatformCommand struct {
	Authority        string
	BackendSigner    string
	MaxDailyXP       uint32
	MaxAchievementXP uint32
	Timestamp        time.Time
	CorrelationID    string
}

// Validate validates the command.
func (c InitializePlatformCommand) Validate() error {
	if c.Authority == "" {
		return errors.New("initialize_platform: authority is required")
	}
	if c.BackendSigner == "" {
		return errors.New("initialize_platform: backend_signer is required")
	}
	if c.MaxDailyXP == 0 {
		return errors.New("initialize_platform: max_daily_xp must be positive")
	}
	return nil
}

// InitializePlatformResult contains the created config snapshot.
type InitializePlatformResult struct {
	Authority        string
	BackendSigner    string
	CurrentSeason    uint16
	MaxDailyXP       uint32
	MaxAchievementXP uint32
	InitializedAt    time.Time
}

// InitializePlatformHandler handles the InitializePlatformCommand.
type InitializePlatformHandler struct {
	store     Store
	publisher shared.EventPublisher
	clock     func() time.Time
}

// NewInitializePlatformHandler creates a new InitializePlatformHandler.
func NewInitializePlatformHandler(store Store, publisher shared.EventPublisher) *InitializePlatformHandler {
	return &InitializePlatformHandler{store: store, publisher: publisher, clock: time.Now}
}

// Handle executes the initialize platform command.
func (h *InitializePlatformHandler) Handle(ctx context.Context, cmd InitializePlatformCommand) (*InitializePlatformResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("initialize_platform: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	cfg, err := platform.NewConfig(cmd.Authority, cmd.BackendSigner, cmd.MaxDailyXP, cmd.MaxAchievementXP, now)
	if err != nil {
		return nil, err
	}

	err = h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Platform.Create(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}

	return &InitializePlatformResult{
		Authority:        cfg.Authority,
		BackendSigner:    cfg.BackendSigner,
		CurrentSeason:    cfg.CurrentSeason,
		MaxDailyXP:       cfg.MaxDailyXP,
		MaxAchievementXP: cfg.MaxAchievementXP,
		InitializedAt:    now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE CONFIG COMMAND
// Partial update: rotate the backend signer, adjust rate limit ceilings.
// Platform authority only.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateConfigCommand contains the optional config changes.
type UpdateConfigCommand struct {
	// Actor must match the platform authority.
	Actor string

	BackendSigner    *string
	MaxDailyXP       *uint32
	MaxAchievementXP *uint32

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c UpdateConfigCommand) Validate() error {
	if c.Actor == "" {
		return errors.New("update_config: actor is required")
	}
	if c.BackendSigner == nil && c.MaxDailyXP == nil && c.MaxAchievementXP == nil {
		return errors.New("update_config: at least one field must be set")
	}
	return nil
}

// UpdateConfigResult lists what changed.
type UpdateConfigResult struct {
	ChangedFields []string
	UpdatedAt     time.Time
}

// UpdateConfigHandler handles the UpdateConfigCommand.
type UpdateConfigHandler struct {
	store     Store
	publisher shared.EventPublisher
	clock     func() time.Time
}

// NewUpdateConfigHandler creates a new UpdateConfigHandler.
func NewUpdateConfigHandler(store Store, publisher shared.EventPublisher) *UpdateConfigHandler {
	return &UpdateConfigHandler{store: store, publisher: publisher, clock: time.Now}
}

// Handle executes the update config command.
func (h *UpdateConfigHandler) Handle(ctx context.Context, cmd UpdateConfigCommand) (*UpdateConfigResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_config: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	var changed []string
	err := h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		cfg, err := repos.Platform.Get(ctx)
		if err != nil {
			return err
		}
		if cfg.Authority != cmd.Actor {
			return shared.ErrUnauthorized
		}

		changed, err = cfg.Apply(platform.Patch{
			BackendSigner:    cmd.BackendSigner,
			MaxDailyXP:       cmd.MaxDailyXP,
			MaxAchievementXP: cmd.MaxAchievementXP,
		}, now)
		if err != nil {
			return err
		}

		return repos.Platform.Update(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewConfigUpdatedEvent(changed)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &UpdateConfigResult{ChangedFields: changed, UpdatedAt: now}, nil
}
