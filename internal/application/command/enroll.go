package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL COMMAND
// Creates the (learner, course) enrollment, snapshotting the course version.
// Prerequisites are enforced one hop at a time: a course with a prerequisite
// requires that immediate prerequisite's enrollment to be completed; the
// ledger does not walk transitive chains.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollCommand contains the data to enroll a learner.
type EnrollCommand struct {
	LearnerID string
	CourseID  string

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c EnrollCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("enroll: learner_id is required")
	}
	if c.CourseID == "" {
		return errors.New("enroll: course_id is required")
	}
	return nil
}

// EnrollResult contains the created enrollment snapshot.
type EnrollResult struct {
	LearnerID       string
	CourseID        string
	EnrolledVersion uint16
	EnrolledAt      time.Time
}

// EnrollHandler handles the EnrollCommand.
type EnrollHandler struct {
	store     Store
	publisher shared.EventPublisher
	clock     func() time.Time
}

// NewEnrollHandler creates a new EnrollHandler.
func NewEnrollHandler(store Store, publisher shared.EventPublisher) *EnrollHandler {
	return &EnrollHandler{store: store, publisher: publisher, clock: time.Now}
}

// Handle executes the enroll command.
func (h *EnrollHandler) Handle(ctx context.Context, cmd EnrollCommand) (*EnrollResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("enroll: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	learnerID := shared.LearnerID(cmd.LearnerID)
	courseID := shared.CourseID(cmd.CourseID)

	var version uint16
	err := h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		// A profile must exist before any enrollment.
		if _, err := repos.Learners.GetByOwner(ctx, learnerID); err != nil {
			return err
		}

		crs, err := repos.Courses.GetByID(ctx, courseID)
		if err != nil {
			return err
		}
		if !crs.IsActive {
			return shared.ErrCourseNotActive
		}

		if crs.HasPrerequisite() {
			prereq, err := repos.Enrollments.Get(ctx, learnerID, crs.Prerequisite)
			switch {
			case shared.IsNotFound(err):
				return shared.ErrPrerequisiteNotMet
			case err != nil:
				return err
			case !prereq.IsCompleted():
				return shared.ErrPrerequisiteNotMet
			}
		}

		exists, err := repos.Enrollments.Exists(ctx, learnerID, courseID)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrAlreadyEnrolled
		}

		if err := crs.RecordEnrollment(); err != nil {
			return err
		}
		version = crs.Version

		enr := enrollment.New(learnerID, courseID, crs.Version, now)
		if err := repos.Enrollments.Create(ctx, enr); err != nil {
			return err
		}
		return repos.Courses.Update(ctx, crs)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewEnrolledEvent(cmd.LearnerID, cmd.CourseID, version)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &EnrollResult{
		LearnerID:       cmd.LearnerID,
		CourseID:        cmd.CourseID,
		EnrolledVersion: version,
		EnrolledAt:      now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLOSE ENROLLMENT COMMAND
// Deletes the enrollment record. Abandoned (uncompleted) enrollments must
// wait out the 24h cooldown; completed ones close any time.
// ══════════════════════════════════════════════════════════════════════════════

// CloseEnrollmentCommand contains the data to close an enrollment.
type CloseEnrollmentCommand struct {
	LearnerID string
	CourseID  string

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c CloseEnrollmentCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("close_enrollment: learner_id is required")
	}
	if c.CourseID == "" {
		return errors.New("close_enrollment: course_id is required")
	}
	return nil
}

// CloseEnrollmentResult reports whether the closed enrollment was completed.
type CloseEnrollmentResult struct {
	LearnerID string
	CourseID  string
	Completed bool
	ClosedAt  time.Time
}

// CloseEnrollmentHandler handles the CloseEnrollmentCommand.
type CloseEnrollmentHandler struct {
	store     Store
	publisher shared.EventPublisher
	clock     func() time.Time
}

// NewCloseEnrollmentHandler creates a new CloseEnrollmentHandler.
func NewCloseEnrollmentHandler(store Store, publisher shared.EventPublisher) *CloseEnrollmentHandler {
	return &CloseEnrollmentHandler{store: store, publisher: publisher, clock: time.Now}
}

// Handle executes the close enrollment command.
func (h *CloseEnrollmentHandler) Handle(ctx context.Context, cmd CloseEnrollmentCommand) (*CloseEnrollmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("close_enrollment: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	learnerID := shared.LearnerID(cmd.LearnerID)
	courseID := shared.CourseID(cmd.CourseID)

	var completed bool
	err := h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		enr, err := repos.Enrollments.Get(ctx, learnerID, courseID)
		if err != nil {
			return err
		}

		if err := enr.CanClose(now.Unix()); err != nil {
			return err
		}
		completed = enr.IsCompleted()

		return repos.Enrollments.Delete(ctx, learnerID, courseID)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewEnrollmentClosedEvent(cmd.LearnerID, cmd.CourseID, completed)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &CloseEnrollmentResult{
		LearnerID: cmd.LearnerID,
		CourseID:  cmd.CourseID,
		Completed: completed,
		ClosedAt:  now,
	}, nil
}
