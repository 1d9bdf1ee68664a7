package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/course"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE COURSE COMMAND
// Registers a catalog entry. Platform authority only; the course's own
// content authority takes over for later updates.
// ══════════════════════════════════════════════════════════════════════════════

// CreateCourseCommand contains the data to register a course.
type CreateCourseCommand struct {
	// Actor must match the platform authority.
	Actor string

	CourseID                string
	Creator                 string
	ContentAuthority        string
	ContentLocator          string // 32 bytes, hex encoded
	LessonCount             uint8
	Difficulty              uint8
	XPPerLesson             uint32
	TrackID                 uint16
	TrackLevel              uint8
	Prerequisite            string // optional course ID
	CompletionBonusXP       uint32
	CreatorRewardXP         uint32
	MinCompletionsForReward uint16

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c CreateCourseCommand) Validate() error {
	if c.Actor == "" {
		return errors.New("create_course: actor is required")
	}
	if c.CourseID == "" {
		return errors.New("create_course: course_id is required")
	}
	if c.Creator == "" {
		return errors.New("create_course: creator is required")
	}
	if c.ContentAuthority == "" {
		return errors.New("create_course: content_authority is required")
	}
	if c.LessonCount == 0 {
		return errors.New("create_course: lesson_count must be positive")
	}
	return nil
}

// CreateCourseResult contains the created course snapshot.
type CreateCourseResult struct {
	CourseID  string
	Version   uint16
	IsActive  bool
	CreatedAt time.Time
}

// CreateCourseHandler handles the CreateCourseCommand.
type CreateCourseHandler struct {
	store     Store
	publisher shared.EventPublisher
	clock     func() time.Time
}

// NewCreateCourseHandler creates a new CreateCourseHandler.
func NewCreateCourseHandler(store Store, publisher shared.EventPublisher) *CreateCourseHandler {
	return &CreateCourseHandler{store: store, publisher: publisher, clock: time.Now}
}

// Handle executes the create course command.
func (h *CreateCourseHandler) Handle(ctx context.Context, cmd CreateCourseCommand) (*CreateCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_course: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	courseID, err := shared.NewCourseID(cmd.CourseID)
	if err != nil {
		return nil, err
	}

	var locator shared.ContentLocator
	if cmd.ContentLocator != "" {
		locator, err = shared.NewContentLocator(cmd.ContentLocator)
		if err != nil {
			return nil, err
		}
	}

	var prereq shared.CourseID
	if cmd.Prerequisite != "" {
		prereq, err = shared.NewCourseID(cmd.Prerequisite)
		if err != nil {
			return nil, err
		}
	}

	crs, err := course.New(courseID, course.Params{
		Creator:                 shared.LearnerID(cmd.Creator),
		ContentAuthority:        shared.LearnerID(cmd.ContentAuthority),
		ContentLocator:          locator,
		LessonCount:             cmd.LessonCount,
		Difficulty:              cmd.Difficulty,
		XPPerLesson:             cmd.XPPerLesson,
		TrackID:                 cmd.TrackID,
		TrackLevel:              cmd.TrackLevel,
		Prerequisite:            prereq,
		CompletionBonusXP:       cmd.CompletionBonusXP,
		CreatorRewardXP:         cmd.CreatorRewardXP,
		MinCompletionsForReward: cmd.MinCompletionsForReward,
	}, now)
	if err != nil {
		return nil, err
	}

	err = h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		cfg, err := repos.Platform.Get(ctx)
		if err != nil {
			return err
		}
		if cfg.Authority != cmd.Actor {
			return shared.ErrUnauthorized
		}

		// A prerequisite must name a real course.
		if !prereq.IsEmpty() {
			if _, err := repos.Courses.GetByID(ctx, prereq); err != nil {
				return err
			}
		}

		return repos.Courses.Create(ctx, crs)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewCourseCreatedEvent(cmd.CourseID, cmd.Creator, cmd.TrackID, cmd.TrackLevel)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &CreateCourseResult{
		CourseID:  crs.ID.String(),
		Version:   crs.Version,
		IsActive:  crs.IsActive,
		CreatedAt: now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE COURSE COMMAND
// Partial update authorized by the course's own content authority, not the
// platform authority. A content change bumps the version.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateCourseCommand contains the optional course changes.
type UpdateCourseCommand struct {
	// Actor must match the course's content authority.
	Actor string

	CourseID string

	ContentLocator          *string // hex encoded
	IsActive                *bool
	CompletionBonusXP       *uint32
	CreatorRewardXP         *uint32
	MinCompletionsForReward *uint16

	Timestamp     time.Time
	CorrelationID string
}

// Validate validates the command.
func (c UpdateCourseCommand) Validate() error {
	if c.Actor == "" {
		return errors.New("update_course: actor is required")
	}
	if c.CourseID == "" {
		return errors.New("update_course: course_id is required")
	}
	if c.ContentLocator == nil && c.IsActive == nil && c.CompletionBonusXP == nil &&
		c.CreatorRewardXP == nil && c.MinCompletionsForReward == nil {
		return errors.New("update_course: at least one field must be set")
	}
	return nil
}

// UpdateCourseResult contains the post-update course version.
type UpdateCourseResult struct {
	CourseID  string
	Version   uint16
	UpdatedAt time.Time
}

// UpdateCourseHandler handles the UpdateCourseCommand.
type UpdateCourseHandler struct {
	store     Store
	publisher shared.EventPublisher
	clock     func() time.Time
}

// NewUpdateCourseHandler creates a new UpdateCourseHandler.
func NewUpdateCourseHandler(store Store, publisher shared.EventPublisher) *UpdateCourseHandler {
	return &UpdateCourseHandler{store: store, publisher: publisher, clock: time.Now}
}

// Handle executes the update course command.
func (h *UpdateCourseHandler) Handle(ctx context.Context, cmd UpdateCourseCommand) (*UpdateCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_course: validation failed: %w", err)
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = h.clock().UTC()
	}

	patch := course.Patch{
		IsActive:                cmd.IsActive,
		CompletionBonusXP:       cmd.CompletionBonusXP,
		CreatorRewardXP:         cmd.CreatorRewardXP,
		MinCompletionsForReward: cmd.MinCompletionsForReward,
	}
	if cmd.ContentLocator != nil {
		locator, err := shared.NewContentLocator(*cmd.ContentLocator)
		if err != nil {
			return nil, err
		}
		patch.ContentLocator = &locator
	}

	var version uint16
	err := h.store.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		crs, err := repos.Courses.GetByID(ctx, shared.CourseID(cmd.CourseID))
		if err != nil {
			return err
		}
		if crs.ContentAuthority.String() != cmd.Actor {
			return shared.ErrUnauthorized
		}

		if err := crs.Apply(patch, now); err != nil {
			return err
		}
		version = crs.Version

		return repos.Courses.Update(ctx, crs)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewCourseUpdatedEvent(cmd.CourseID, version)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &UpdateCourseResult{CourseID: cmd.CourseID, Version: version, UpdatedAt: now}, nil
}
