package course

import (
	"context"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ListOptions contains pagination and filtering parameters for catalog queries.
type ListOptions struct {
	Offset     int
	Limit      int
	TrackID    *uint16
	OnlyActive bool
}

// DefaultListOptions returns catalog listing defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 50, OnlyActive: true}
}

// Repository defines persistence operations for the course catalog.
type Repository interface {
	// Create persists a new course.
	// Returns ErrCourseAlreadyExists if the ID is taken.
	Create(ctx context.Context, course *Course) error

	// GetByID returns a course by its slug.
	// Returns ErrCourseNotFound if it does not exist.
	GetByID(ctx context.Context, id shared.CourseID) (*Course, error)

	// Update persists course mutations.
	// Returns ErrCourseNotFound if it does not exist.
	Update(ctx context.Context, course *Course) error

	// List returns catalog entries matching the options.
	List(ctx context.Context, opts ListOptions) ([]*Course, error)

	// Exists checks whether a course exists.
	Exists(ctx context.Context, id shared.CourseID) (bool, error)

	// Count returns the number of courses matching the options.
	Count(ctx context.Context, opts ListOptions) (int, error)
}
