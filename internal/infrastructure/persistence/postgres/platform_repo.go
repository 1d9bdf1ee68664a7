package postgres

import (
	"context"

	"github.com/academy-hub/academy-ledger/internal/domain/platform"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// PlatformRepository implements platform.Repository on top of the singleton
// platform_config row.
type PlatformRepository struct {
	q Querier
}

// NewPlatformRepository creates a new PlatformRepository.
func NewPlatformRepository(q Querier) *PlatformRepository {
	return &PlatformRepository{q: q}
}

// Create persists the singleton config.
func (r *PlatformRepository) Create(ctx context.Context, cfg *platform.Config) error {
	const query = `
		INSERT INTO platform_config (
			id, authority, backend_signer, current_season, current_mint,
			season_closed, season_started_at, max_daily_xp, max_achievement_xp,
			created_at, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.Exec(ctx, query,
		cfg.Authority, cfg.BackendSigner, int32(cfg.CurrentSeason), cfg.CurrentMint.String(),
		cfg.SeasonClosed, cfg.SeasonStartedAt, int64(cfg.MaxDailyXP), int64(cfg.MaxAchievementXP),
		cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrPlatformAlreadyInitialized
		}
		return err
	}
	return nil
}

// Get returns the config singleton.
func (r *PlatformRepository) Get(ctx context.Context) (*platform.Config, error) {
	const query = `
		SELECT authority, backend_signer, current_season, current_mint,
			season_closed, season_started_at, max_daily_xp, max_achievement_xp,
			created_at, updated_at
		FROM platform_config WHERE id = 1
	`
	var (
		cfg     platform.Config
		season  int32
		mint    string
		daily   int64
		achieve int64
	)
	err := r.q.QueryRow(ctx, query).Scan(
		&cfg.Authority, &cfg.BackendSigner, &season, &mint,
		&cfg.SeasonClosed, &cfg.SeasonStartedAt, &daily, &achieve,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPlatformNotInitialized
		}
		return nil, err
	}
	cfg.CurrentSeason = uint16(season)
	cfg.CurrentMint = shared.MintID(mint)
	cfg.MaxDailyXP = uint32(daily)
	cfg.MaxAchievementXP = uint32(achieve)
	return &cfg, nil
}

// Update persists config mutations.
func (r *PlatformRepository) Update(ctx context.Context, cfg *platform.Config) error {
	const query = `
		UPDATE platform_config SET
			authority = $1, backend_signer = $2, current_season = $3,
			current_mint = $4, season_closed = $5, season_started_at = $6,
			max_daily_xp = $7, max_achievement_xp = $8, updated_at = $9
		WHERE id = 1
	`
	tag, err := r.q.Exec(ctx, query,
		cfg.Authority, cfg.BackendSigner, int32(cfg.CurrentSeason), cfg.CurrentMint.String(),
		cfg.SeasonClosed, cfg.SeasonStartedAt, int64(cfg.MaxDailyXP), int64(cfg.MaxAchievementXP),
		cfg.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrPlatformNotInitialized
	}
	return nil
}
