package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/academy-hub/academy-ledger/internal/domain/course"
	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ENROLLMENT QUERY
// Per-lesson detail for one (learner, course) pair, joined with the current
// course definition so the caller sees which lessons remain.
// ══════════════════════════════════════════════════════════════════════════════

// GetEnrollmentQuery contains the parameters for an enrollment detail read.
type GetEnrollmentQuery struct {
	LearnerID string
	CourseID  string
}

// Validate validates the query.
func (q GetEnrollmentQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_enrollment: learner_id is required")
	}
	if q.CourseID == "" {
		return errors.New("get_enrollment: course_id is required")
	}
	return nil
}

// EnrollmentDetailResult is the enrollment detail projection.
type EnrollmentDetailResult struct {
	LearnerID        string `json:"learner_id"`
	CourseID         string `json:"course_id"`
	EnrolledVersion  uint16 `json:"enrolled_version"`
	CurrentVersion   uint16 `json:"current_version"`
	EnrolledAt       int64  `json:"enrolled_at"`
	CompletedAt      *int64 `json:"completed_at,omitempty"`
	LessonCount      uint8  `json:"lesson_count"`
	LessonsCompleted uint8  `json:"lessons_completed"`
	LessonStates     []bool `json:"lesson_states"`
	BonusClaimed     bool   `json:"bonus_claimed"`
	CredentialAsset  string `json:"credential_asset,omitempty"`
}

// GetEnrollmentHandler handles the GetEnrollmentQuery.
type GetEnrollmentHandler struct {
	enrollments enrollment.Repository
	courses     course.Repository
}

// NewGetEnrollmentHandler creates a new GetEnrollmentHandler.
func NewGetEnrollmentHandler(enrollments enrollment.Repository, courses course.Repository) *GetEnrollmentHandler {
	return &GetEnrollmentHandler{enrollments: enrollments, courses: courses}
}

// Handle executes the get enrollment query.
func (h *GetEnrollmentHandler) Handle(ctx context.Context, q GetEnrollmentQuery) (*EnrollmentDetailResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_enrollment: validation failed: %w", err)
	}

	enr, err := h.enrollments.Get(ctx, shared.LearnerID(q.LearnerID), shared.CourseID(q.CourseID))
	if err != nil {
		return nil, err
	}

	crs, err := h.courses.GetByID(ctx, enr.Course)
	if err != nil {
		return nil, err
	}

	states := make([]bool, crs.LessonCount)
	for i := uint8(0); i < crs.LessonCount; i++ {
		states[i] = enr.LessonCompleted(i)
	}

	return &EnrollmentDetailResult{
		LearnerID:        enr.Learner.String(),
		CourseID:         enr.Course.String(),
		EnrolledVersion:  enr.EnrolledVersion,
		CurrentVersion:   crs.Version,
		EnrolledAt:       enr.EnrolledAt,
		CompletedAt:      enr.CompletedAt,
		LessonCount:      crs.LessonCount,
		LessonsCompleted: enr.CompletedLessonCount(),
		LessonStates:     states,
		BonusClaimed:     enr.BonusClaimed,
		CredentialAsset:  enr.CredentialAsset,
	}, nil
}
