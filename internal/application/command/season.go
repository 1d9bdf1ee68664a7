package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE SEASON COMMAND
// Seasons are strictly sequential and never overlap: season n can only open
// as n == currentSeason + 1, and a prior season must be closed first.
// ══════════════════════════════════════════════════════════════════════════════

// CreateSeasonCommand contains the data to open a new season.
type CreateSeasonCommand struct {
	// Actor must match the platform authority.
	Actor string

	// Season is the sequential season number.
	Season uint16

	// Mint references the fresh reward currency for this season.
	Mint string

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c CreateSeasonCommand) Validate() error {
	if c.Actor == "" {
		return errors.New("create_season: actor is required")
	}
	if c.Season == 0 {
		return errors.New("create_season: season must be positive")
	}
	if c.Mint == "" {
		return errors.New("create_season: mint is required")
	}
	return nil
}

// CreateSeasonResult contains the opened season.
type CreateSeasonResult struct {
	Season    uint16
	Mint      string
	StartedAt time.Time
}

// CreateSeasonHandler handles the CreateSeasonCommand.
type CreateSeasonHandler struct {
	store     Store
	publisher shared.EventPublisher
	clock     func() time.Time
}

// NewCreateSeasonHandler creates a new CreateSeasonHandler.
func NewCreateSeasonHandler(store Store, publisher shared.EventPublisher) *CreateSeasonHandler {
	return &CreateSeasonHandler{store: store, publisher: publisher, clock: time.Now}
}

// Handle executes the create season command.
func (h *CreateSeasonHandler) Handle(ctx context.Context, cmd CreateSeasonCommand) (*CreateSeasonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_season: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	err := h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		cfg, err := repos.Platform.Get(ctx)
		if err != nil {
			return err
		}
		if cfg.Authority != cmd.Actor {
			return shared.ErrUnauthorized
		}

		if err := cfg.CreateSeason(cmd.Season, shared.MintID(cmd.Mint), now.Unix()); err != nil {
			return err
		}

		return repos.Platform.Update(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewSeasonCreatedEvent(cmd.Season, cmd.Mint)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &CreateSeasonResult{Season: cmd.Season, Mint: cmd.Mint, StartedAt: now}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLOSE SEASON COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CloseSeasonCommand closes the current season.
type CloseSeasonCommand struct {
	// Actor must match the platform authority.
	Actor string

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c CloseSeasonCommand) Validate() error {
	if c.Actor == "" {
		return errors.New("close_season: actor is required")
	}
	return nil
}

// CloseSeasonResult contains the closed season number.
type CloseSeasonResult struct {
	Season   uint16
	ClosedAt time.Time
}

// CloseSeasonHandler handles the CloseSeasonCommand.
type CloseSeasonHandler struct {
	store     Store
	publisher shared.EventPublisher
	clock     func() time.Time
}

// NewCloseSeasonHandler creates a new CloseSeasonHandler.
func NewCloseSeasonHandler(store Store, publisher shared.EventPublisher) *CloseSeasonHandler {
	return &CloseSeasonHandler{store: store, publisher: publisher, clock: time.Now}
}

// Handle executes the close season command. Closing is unconditional: an
// already closed season stays closed.
func (h *CloseSeasonHandler) Handle(ctx context.Context, cmd CloseSeasonCommand) (*CloseSeasonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("close_season: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	var season uint16
	err := h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		cfg, err := repos.Platform.Get(ctx)
		if err != nil {
			return err
		}
		if cfg.Authority != cmd.Actor {
			return shared.ErrUnauthorized
		}

		cfg.CloseSeason()
		season = cfg.CurrentSeason

		return repos.Platform.Update(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewSeasonClosedEvent(season)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &CloseSeasonResult{Season: season, ClosedAt: now}, nil
}
