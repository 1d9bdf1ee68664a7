// Package enrollment contains the per (learner, course) progress aggregate:
// the lesson completion bitmap, completion timestamp, and claim flags.
// This is core business logic - no external dependencies.
package enrollment

import (
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// CloseCooldownSeconds is how long an uncompleted enrollment must exist
// before it may be closed. Prevents enroll/abandon/re-enroll churn.
const CloseCooldownSeconds int64 = 86400

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment is keyed by the (learner, course) pair - unique per pair,
// created by enroll, destroyed by closeEnrollment.
type Enrollment struct {
	Learner shared.LearnerID
	Course  shared.CourseID

	// EnrolledVersion snapshots the course version at enroll time.
	EnrolledVersion uint16

	// EnrolledAt is the enrollment unix timestamp, used for the close cooldown.
	EnrolledAt int64

	// CompletedAt is set exactly once, by finalize. Nil means not completed;
	// the zero/absent distinction is load-bearing.
	CompletedAt *int64

	// CompletedLessons is the lesson bitmap, capacity capped to 128.
	CompletedLessons shared.BitSet256

	// CredentialAsset references the track credential, set at most once and
	// then only updated in place. Empty means no credential yet.
	CredentialAsset string

	// BonusClaimed is set at most once.
	BonusClaimed bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a fresh enrollment snapshotting the course version.
func New(learner shared.LearnerID, courseID shared.CourseID, courseVersion uint16, now time.Time) *Enrollment {
	return &Enrollment{
		Learner:          learner,
		Course:           courseID,
		EnrolledVersion:  courseVersion,
		EnrolledAt:       now.Unix(),
		CompletedLessons: shared.NewLessonBitSet(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IsCompleted reports whether the course has been finalized.
func (e *Enrollment) IsCompleted() bool {
	return e.CompletedAt != nil
}

// LessonCompleted reports whether a lesson bit is set.
func (e *Enrollment) LessonCompleted(index uint8) bool {
	return e.CompletedLessons.Test(uint16(index))
}

// CompletedLessonCount returns the number of completed lessons.
func (e *Enrollment) CompletedLessonCount() uint8 {
	return uint8(e.CompletedLessons.Count())
}

// CompleteLesson marks a lesson bit. Fails with ErrLessonOutOfBounds when the
// index is not a valid lesson of the course, and ErrLessonAlreadyCompleted on
// repeat submission. Idempotent-rejecting: a duplicate is an error, not a
// silent success.
func (e *Enrollment) CompleteLesson(index, lessonCount uint8) error {
	if index >= lessonCount {
		return shared.ErrLessonOutOfBounds
	}
	if !e.CompletedLessons.Set(uint16(index)) {
		return shared.ErrLessonAlreadyCompleted
	}
	return nil
}

// AllLessonsCompleted re-derives completion from the bitmap. Never cached,
// so it is safe against any bitmap-mutation ordering.
func (e *Enrollment) AllLessonsCompleted(lessonCount uint8) bool {
	return e.CompletedLessons.IsSubsetOfRange(uint16(lessonCount))
}

// Finalize sets the completion timestamp once all lessons are done.
func (e *Enrollment) Finalize(lessonCount uint8, now int64) error {
	if e.IsCompleted() {
		return shared.ErrCourseAlreadyFinalized
	}
	if !e.AllLessonsCompleted(lessonCount) {
		return shared.ErrCourseNotCompleted
	}
	e.CompletedAt = &now
	return nil
}

// ClaimBonus marks the completion bonus as claimed, exactly once, only after
// finalization.
func (e *Enrollment) ClaimBonus() error {
	if !e.IsCompleted() {
		return shared.ErrCourseNotFinalized
	}
	if e.BonusClaimed {
		return shared.ErrBonusAlreadyClaimed
	}
	e.BonusClaimed = true
	return nil
}

// CanClose checks the close preconditions. Completed enrollments close any
// time; abandoned ones only after the 24h cooldown.
func (e *Enrollment) CanClose(now int64) error {
	if e.IsCompleted() {
		return nil
	}
	if now-e.EnrolledAt < CloseCooldownSeconds {
		return shared.ErrUnenrollCooldown
	}
	return nil
}

// HasCredential reports whether a credential asset is attached.
func (e *Enrollment) HasCredential() bool {
	return e.CredentialAsset != ""
}

// AttachCredential records the credential asset reference. First call sets
// it; later calls overwrite in place (the credential is upgraded, not
// reissued, across courses within a track).
func (e *Enrollment) AttachCredential(asset string) error {
	if !e.IsCompleted() {
		return shared.ErrCourseNotFinalized
	}
	e.CredentialAsset = asset
	return nil
}
