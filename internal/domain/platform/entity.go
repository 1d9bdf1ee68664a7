// Package platform contains the singleton platform configuration and the
// season lifecycle state machine that gates all reward issuance.
// This is core business logic - no external dependencies.
package platform

import (
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PLATFORM CONFIG (SINGLETON)
// ══════════════════════════════════════════════════════════════════════════════

// Config is the process-wide singleton with an init-once lifecycle.
// SeasonClosed == true means no reward-currency issuance anywhere.
type Config struct {
	// Authority is the platform admin identity.
	Authority string

	// BackendSigner is a rotatable identity authorized to attest
	// off-system-verified completions.
	BackendSigner string

	// CurrentSeason starts at 0 (no season yet) and is strictly sequential.
	CurrentSeason uint16

	// CurrentMint references the active season's reward currency. Empty
	// until the first season opens.
	CurrentMint shared.MintID

	// SeasonClosed starts true; the first createSeason clears it.
	SeasonClosed bool

	// SeasonStartedAt is the unix timestamp of the current season's open.
	SeasonStartedAt int64

	// MaxDailyXP caps any learner's XP per UTC day.
	MaxDailyXP uint32

	// MaxAchievementXP caps the XP of a single achievement claim.
	MaxAchievementXP uint32

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConfig initializes the platform. Season 0 with an empty mint and the
// closed flag set means nothing can be minted until the first season opens.
func NewConfig(authority, backendSigner string, maxDailyXP, maxAchievementXP uint32, now time.Time) (*Config, error) {
	if authority == "" || backendSigner == "" {
		return nil, shared.NewDomainError("platform", "NewConfig", shared.ErrEmptyValue, "authority and backend signer are required")
	}
	if maxDailyXP == 0 {
		return nil, shared.ErrInvalidConfigValue
	}
	return &Config{
		Authority:        authority,
		BackendSigner:    backendSigner,
		CurrentSeason:    0,
		SeasonClosed:     true,
		MaxDailyXP:       maxDailyXP,
		MaxAchievementXP: maxAchievementXP,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SEASON LIFECYCLE
// NoSeason -> Open -> Closed -> Open -> ...
// ══════════════════════════════════════════════════════════════════════════════

// SeasonActive reports whether reward issuance is currently permitted.
func (c *Config) SeasonActive() bool {
	return !c.SeasonClosed && !c.CurrentMint.IsEmpty()
}

// RequireActiveSeason checks that reward issuance is permitted right now.
// Issuers always mint against CurrentMint, so the open-season flag and a
// non-empty mint are the whole gate.
func (c *Config) RequireActiveSeason() error {
	if !c.SeasonActive() {
		return shared.ErrSeasonNotActive
	}
	return nil
}

// CreateSeason opens season n with a fresh reward currency. Seasons are
// strictly sequential with no gaps and no re-opening of old numbers, and a
// prior season must be closed before the next one opens.
func (c *Config) CreateSeason(n uint16, mint shared.MintID, now int64) error {
	if n != c.CurrentSeason+1 {
		return shared.ErrInvalidSeasonNumber
	}
	if c.CurrentSeason > 0 && !c.SeasonClosed {
		return shared.ErrSeasonNotClosed
	}
	if mint.IsEmpty() {
		return shared.NewDomainError("platform", "CreateSeason", shared.ErrEmptyValue, "season mint is required")
	}

	c.CurrentSeason = n
	c.CurrentMint = mint
	c.SeasonClosed = false
	c.SeasonStartedAt = now
	return nil
}

// CloseSeason sets the closed flag unconditionally. Closing an already
// closed season is tolerated.
func (c *Config) CloseSeason() {
	c.SeasonClosed = true
}

// ══════════════════════════════════════════════════════════════════════════════
// CONFIG UPDATES
// ══════════════════════════════════════════════════════════════════════════════

// Patch is a partial-update request for config: every field is independently
// optional, nil fields are left untouched.
type Patch struct {
	BackendSigner    *string
	MaxDailyXP       *uint32
	MaxAchievementXP *uint32
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.BackendSigner == nil && p.MaxDailyXP == nil && p.MaxAchievementXP == nil
}

// Apply applies the present patch fields and returns the names of changed
// fields for event reporting.
func (c *Config) Apply(p Patch, now time.Time) ([]string, error) {
	var changed []string
	if p.BackendSigner != nil {
		if *p.BackendSigner == "" {
			return nil, shared.NewDomainError("platform", "Apply", shared.ErrEmptyValue, "backend signer cannot be empty")
		}
		c.BackendSigner = *p.BackendSigner
		changed = append(changed, "backend_signer")
	}
	if p.MaxDailyXP != nil {
		if *p.MaxDailyXP == 0 {
			return nil, shared.ErrInvalidConfigValue
		}
		c.MaxDailyXP = *p.MaxDailyXP
		changed = append(changed, "max_daily_xp")
	}
	if p.MaxAchievementXP != nil {
		c.MaxAchievementXP = *p.MaxAchievementXP
		changed = append(changed, "max_achievement_xp")
	}
	if len(changed) > 0 {
		c.UpdatedAt = now
	}
	return changed, nil
}
