// Package course contains the course catalog aggregate: immutable identity,
// versioned content pointer, reward parameters, and enrollment counters.
// This is core business logic - no external dependencies.
package course

import (
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course is a catalog entry. The ID is the identity key and never changes;
// content and reward parameters are mutable through versioned updates.
type Course struct {
	// ID is the course slug, max 32 bytes. Immutable once created.
	ID shared.CourseID

	// Creator earns XP on learner completions.
	Creator shared.LearnerID

	// ContentAuthority may update course content and parameters. Distinct
	// from the platform authority.
	ContentAuthority shared.LearnerID

	// ContentLocator is the opaque reference to off-system content.
	ContentLocator shared.ContentLocator

	// Version starts at 1 and bumps on every content change.
	Version uint16

	// LessonCount is the number of lessons, max 128.
	LessonCount uint8

	Difficulty  shared.Difficulty
	XPPerLesson uint32
	TrackID     uint16
	TrackLevel  shared.TrackLevel

	// Prerequisite references another course that must be completed first.
	// Empty when the course has no prerequisite.
	Prerequisite shared.CourseID

	CompletionBonusXP       uint32
	CreatorRewardXP         uint32
	MinCompletionsForReward uint16

	// Monotonic counters, checked arithmetic only.
	TotalCompletions uint32
	TotalEnrollments uint32

	// IsActive gates new enrollments.
	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Params carries the creation parameters for a new course.
type Params struct {
	Creator                 shared.LearnerID
	ContentAuthority        shared.LearnerID
	ContentLocator          shared.ContentLocator
	LessonCount             uint8
	Difficulty              uint8
	XPPerLesson             uint32
	TrackID                 uint16
	TrackLevel              uint8
	Prerequisite            shared.CourseID
	CompletionBonusXP       uint32
	CreatorRewardXP         uint32
	MinCompletionsForReward uint16
}

// New creates a course with version 1, zeroed counters, and active status.
func New(id shared.CourseID, p Params, now time.Time) (*Course, error) {
	if !id.IsValid() {
		if len(id) > shared.MaxCourseIDLength {
			return nil, shared.ErrCourseIDTooLong
		}
		return nil, shared.ErrInvalidCourseID
	}
	difficulty, err := shared.NewDifficulty(p.Difficulty)
	if err != nil {
		return nil, err
	}
	trackLevel, err := shared.NewTrackLevel(p.TrackLevel)
	if err != nil {
		return nil, err
	}
	if p.LessonCount == 0 || uint16(p.LessonCount) > shared.LessonBitSetCapacity {
		return nil, shared.ErrInvalidLessonCount
	}

	return &Course{
		ID:                      id,
		Creator:                 p.Creator,
		ContentAuthority:        p.ContentAuthority,
		ContentLocator:          p.ContentLocator,
		Version:                 1,
		LessonCount:             p.LessonCount,
		Difficulty:              difficulty,
		XPPerLesson:             p.XPPerLesson,
		TrackID:                 p.TrackID,
		TrackLevel:              trackLevel,
		Prerequisite:            p.Prerequisite,
		CompletionBonusXP:       p.CompletionBonusXP,
		CreatorRewardXP:         p.CreatorRewardXP,
		MinCompletionsForReward: p.MinCompletionsForReward,
		IsActive:                true,
		CreatedAt:               now,
		UpdatedAt:               now,
	}, nil
}

// HasPrerequisite reports whether enrollment requires a prior completion.
func (c *Course) HasPrerequisite() bool {
	return !c.Prerequisite.IsEmpty()
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATES
// ══════════════════════════════════════════════════════════════════════════════

// Patch is a partial-update request: every field is independently optional,
// nil fields are left untouched.
type Patch struct {
	ContentLocator          *shared.ContentLocator
	IsActive                *bool
	CompletionBonusXP       *uint32
	CreatorRewardXP         *uint32
	MinCompletionsForReward *uint16
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.ContentLocator == nil &&
		p.IsActive == nil &&
		p.CompletionBonusXP == nil &&
		p.CreatorRewardXP == nil &&
		p.MinCompletionsForReward == nil
}

// Apply applies the present patch fields. A content change bumps the version
// by exactly one; all other fields change independently.
func (c *Course) Apply(p Patch, now time.Time) error {
	if p.ContentLocator != nil {
		v, err := shared.CheckedIncU16(c.Version)
		if err != nil {
			return shared.WrapError("course", "Apply", shared.ErrOverflow, "version overflow", err)
		}
		c.ContentLocator = *p.ContentLocator
		c.Version = v
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.CompletionBonusXP != nil {
		c.CompletionBonusXP = *p.CompletionBonusXP
	}
	if p.CreatorRewardXP != nil {
		c.CreatorRewardXP = *p.CreatorRewardXP
	}
	if p.MinCompletionsForReward != nil {
		c.MinCompletionsForReward = *p.MinCompletionsForReward
	}
	c.UpdatedAt = now
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COUNTERS
// ══════════════════════════════════════════════════════════════════════════════

// RecordEnrollment bumps the enrollment counter with checked arithmetic.
func (c *Course) RecordEnrollment() error {
	n, err := shared.CheckedIncU32(c.TotalEnrollments)
	if err != nil {
		return shared.WrapError("course", "RecordEnrollment", shared.ErrOverflow, "enrollment count overflow", err)
	}
	c.TotalEnrollments = n
	return nil
}

// RecordCompletion bumps the completion counter and reports whether the
// creator reward threshold has been reached.
func (c *Course) RecordCompletion() (creatorRewardDue bool, err error) {
	n, err := shared.CheckedIncU32(c.TotalCompletions)
	if err != nil {
		return false, shared.WrapError("course", "RecordCompletion", shared.ErrOverflow, "completion count overflow", err)
	}
	c.TotalCompletions = n
	return n >= uint32(c.MinCompletionsForReward), nil
}
