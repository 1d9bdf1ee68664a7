package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/academy-hub/academy-ledger/internal/domain/course"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE CATALOG QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// CourseView is the public catalog projection of a course.
type CourseView struct {
	ID                      string `json:"id"`
	Creator                 string `json:"creator"`
	ContentLocator          string `json:"content_locator,omitempty"`
	Version                 uint16 `json:"version"`
	LessonCount             uint8  `json:"lesson_count"`
	Difficulty              string `json:"difficulty"`
	XPPerLesson             uint32 `json:"xp_per_lesson"`
	TrackID                 uint16 `json:"track_id"`
	TrackLevel              string `json:"track_level"`
	Prerequisite            string `json:"prerequisite,omitempty"`
	CompletionBonusXP       uint32 `json:"completion_bonus_xp"`
	CreatorRewardXP         uint32 `json:"creator_reward_xp"`
	MinCompletionsForReward uint16 `json:"min_completions_for_reward"`
	TotalCompletions        uint32 `json:"total_completions"`
	TotalEnrollments        uint32 `json:"total_enrollments"`
	IsActive                bool   `json:"is_active"`
}

func newCourseView(c *course.Course) CourseView {
	view := CourseView{
		ID:                      c.ID.String(),
		Creator:                 c.Creator.String(),
		Version:                 c.Version,
		LessonCount:             c.LessonCount,
		Difficulty:              c.Difficulty.String(),
		XPPerLesson:             c.XPPerLesson,
		TrackID:                 c.TrackID,
		TrackLevel:              c.TrackLevel.String(),
		Prerequisite:            c.Prerequisite.String(),
		CompletionBonusXP:       c.CompletionBonusXP,
		CreatorRewardXP:         c.CreatorRewardXP,
		MinCompletionsForReward: c.MinCompletionsForReward,
		TotalCompletions:        c.TotalCompletions,
		TotalEnrollments:        c.TotalEnrollments,
		IsActive:                c.IsActive,
	}
	if !c.ContentLocator.IsZero() {
		view.ContentLocator = c.ContentLocator.String()
	}
	return view
}

// GetCourseQuery contains the parameters for a single course read.
type GetCourseQuery struct {
	CourseID string
}

// Validate validates the query.
func (q GetCourseQuery) Validate() error {
	if q.CourseID == "" {
		return errors.New("get_course: course_id is required")
	}
	return nil
}

// GetCourseHandler handles the GetCourseQuery.
type GetCourseHandler struct {
	courses course.Repository
}

// NewGetCourseHandler creates a new GetCourseHandler.
func NewGetCourseHandler(courses course.Repository) *GetCourseHandler {
	return &GetCourseHandler{courses: courses}
}

// Handle executes the get course query.
func (h *GetCourseHandler) Handle(ctx context.Context, q GetCourseQuery) (*CourseView, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_course: validation failed: %w", err)
	}

	crs, err := h.courses.GetByID(ctx, shared.CourseID(q.CourseID))
	if err != nil {
		return nil, err
	}

	view := newCourseView(crs)
	return &view, nil
}

// ListCoursesQuery contains the catalog listing parameters.
type ListCoursesQuery struct {
	Page     int
	PageSize int

	// TrackID filters by track when non-nil.
	TrackID *uint16

	// IncludeInactive also returns deactivated courses.
	IncludeInactive bool
}

// ListCoursesResult is one catalog page.
type ListCoursesResult struct {
	Courses  []CourseView `json:"courses"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// ListCoursesHandler handles the ListCoursesQuery.
type ListCoursesHandler struct {
	courses course.Repository
}

// NewListCoursesHandler creates a new ListCoursesHandler.
func NewListCoursesHandler(courses course.Repository) *ListCoursesHandler {
	return &ListCoursesHandler{courses: courses}
}

// Handle executes the list courses query.
func (h *ListCoursesHandler) Handle(ctx context.Context, q ListCoursesQuery) (*ListCoursesResult, error) {
	page := shared.NewPagination(q.Page, q.PageSize)
	opts := course.ListOptions{
		Offset:     page.Offset(),
		Limit:      page.Limit(),
		TrackID:    q.TrackID,
		OnlyActive: !q.IncludeInactive,
	}

	list, err := h.courses.List(ctx, opts)
	if err != nil {
		return nil, err
	}

	countOpts := opts
	countOpts.Offset = 0
	countOpts.Limit = 0
	total, err := h.courses.Count(ctx, countOpts)
	if err != nil {
		return nil, err
	}

	views := make([]CourseView, 0, len(list))
	for _, c := range list {
		views = append(views, newCourseView(c))
	}

	return &ListCoursesResult{
		Courses:  views,
		Total:    total,
		Page:     page.Page,
		PageSize: page.Limit(),
	}, nil
}
