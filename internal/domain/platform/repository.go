package platform

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines persistence operations for the config singleton.
type Repository interface {
	// Create persists the singleton config.
	// Returns ErrPlatformAlreadyInitialized if it already exists.
	Create(ctx context.Context, cfg *Config) error

	// Get returns the config singleton.
	// Returns ErrPlatformNotInitialized if it does not exist.
	Get(ctx context.Context) (*Config, error)

	// Update persists config mutations.
	// Returns ErrPlatformNotInitialized if it does not exist.
	Update(ctx context.Context, cfg *Config) error
}
