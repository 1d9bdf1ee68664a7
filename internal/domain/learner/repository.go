package learner

import (
	"context"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines persistence operations for learner profiles.
type Repository interface {
	// Create persists a new profile.
	// Returns ErrLearnerAlreadyInitialized if the profile already exists.
	Create(ctx context.Context, profile *Profile) error

	// GetByOwner returns the profile for a learner.
	// Returns ErrLearnerNotFound if the profile does not exist.
	GetByOwner(ctx context.Context, owner shared.LearnerID) (*Profile, error)

	// Update persists profile mutations.
	// Returns ErrLearnerNotFound if the profile does not exist.
	Update(ctx context.Context, profile *Profile) error

	// Exists checks whether a profile exists for the learner.
	Exists(ctx context.Context, owner shared.LearnerID) (bool, error)

	// FindStreaksAtRisk returns profiles whose streak would break if no
	// activity happens before the end of the current day. Used by the
	// at-risk notification job; asOf is the reference unix timestamp.
	FindStreaksAtRisk(ctx context.Context, asOf int64, limit int) ([]*Profile, error)

	// Count returns the total number of profiles.
	Count(ctx context.Context) (int, error)
}
