package enrollment

import (
	"context"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines persistence operations for enrollments.
type Repository interface {
	// Create persists a new enrollment.
	// Returns ErrAlreadyEnrolled if the (learner, course) pair exists.
	Create(ctx context.Context, e *Enrollment) error

	// Get returns the enrollment for a (learner, course) pair.
	// Returns ErrNotEnrolled if it does not exist.
	Get(ctx context.Context, learner shared.LearnerID, courseID shared.CourseID) (*Enrollment, error)

	// Update persists enrollment mutations.
	// Returns ErrNotEnrolled if it does not exist.
	Update(ctx context.Context, e *Enrollment) error

	// Delete removes the enrollment record.
	// Returns ErrNotEnrolled if it does not exist.
	Delete(ctx context.Context, learner shared.LearnerID, courseID shared.CourseID) error

	// ListByLearner returns all enrollments for a learner.
	ListByLearner(ctx context.Context, learner shared.LearnerID) ([]*Enrollment, error)

	// Exists checks whether the (learner, course) pair is enrolled.
	Exists(ctx context.Context, learner shared.LearnerID, courseID shared.CourseID) (bool, error)

	// CountByCourse returns the number of open enrollments for a course.
	CountByCourse(ctx context.Context, courseID shared.CourseID) (int, error)
}
