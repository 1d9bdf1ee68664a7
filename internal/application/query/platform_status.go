package query

import (
	"context"

	"github.com/academy-hub/academy-ledger/internal/domain/platform"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PLATFORM STATUS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// PlatformStatusResult is the public season and rate-limit snapshot. The
// authority identities are deliberately not part of the public view.
type PlatformStatusResult struct {
	CurrentSeason    uint16 `json:"current_season"`
	SeasonActive     bool   `json:"season_active"`
	CurrentMint      string `json:"current_mint,omitempty"`
	SeasonStartedAt  int64  `json:"season_started_at,omitempty"`
	MaxDailyXP       uint32 `json:"max_daily_xp"`
	MaxAchievementXP uint32 `json:"max_achievement_xp"`
}

// GetPlatformStatusHandler handles the platform status query.
type GetPlatformStatusHandler struct {
	platform platform.Repository
}

// NewGetPlatformStatusHandler creates a new GetPlatformStatusHandler.
func NewGetPlatformStatusHandler(platformRepo platform.Repository) *GetPlatformStatusHandler {
	return &GetPlatformStatusHandler{platform: platformRepo}
}

// Handle executes the platform status query.
func (h *GetPlatformStatusHandler) Handle(ctx context.Context) (*PlatformStatusResult, error) {
	cfg, err := h.platform.Get(ctx)
	if err != nil {
		return nil, err
	}

	result := &PlatformStatusResult{
		CurrentSeason:    cfg.CurrentSeason,
		SeasonActive:     cfg.SeasonActive(),
		MaxDailyXP:       cfg.MaxDailyXP,
		MaxAchievementXP: cfg.MaxAchievementXP,
	}
	if cfg.SeasonActive() {
		result.CurrentMint = cfg.CurrentMint.String()
		result.SeasonStartedAt = cfg.SeasonStartedAt
	}
	return result, nil
}
