package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/academy-ledger/internal/domain/course"
	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

const testCreator = "33333333-3333-3333-3333-333333333333"

func seedCourse(t *testing.T, id string, trackID uint16, active bool) *course.Course {
	t.Helper()
	crs, err := course.New(shared.CourseID(id), course.Params{
		Creator:          shared.LearnerID(testCreator),
		ContentAuthority: shared.LearnerID(testCreator),
		LessonCount:      4,
		Difficulty:       1,
		XPPerLesson:      100,
		TrackID:          trackID,
		TrackLevel:       1,
	}, testNow)
	require.NoError(t, err)
	crs.IsActive = active
	return crs
}

func TestGetCourse(t *testing.T) {
	crs := seedCourse(t, testCourse, 7, true)
	h := NewGetCourseHandler(stubCourses{crs.ID: crs})

	view, err := h.Handle(context.Background(), GetCourseQuery{CourseID: testCourse})
	require.NoError(t, err)

	assert.Equal(t, testCourse, view.ID)
	assert.Equal(t, testCreator, view.Creator)
	assert.Equal(t, uint8(4), view.LessonCount)
	assert.Equal(t, uint32(100), view.XPPerLesson)
	assert.Equal(t, uint16(7), view.TrackID)
	assert.True(t, view.IsActive)
}

func TestGetCourseNotFound(t *testing.T) {
	h := NewGetCourseHandler(stubCourses{})

	_, err := h.Handle(context.Background(), GetCourseQuery{CourseID: "nope"})
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)
}

func TestListCoursesFilters(t *testing.T) {
	courses := stubCourses{}
	for _, c := range []*course.Course{
		seedCourse(t, "anchor-301", 7, true),
		seedCourse(t, "rust-201", 7, true),
		seedCourse(t, "retired-101", 7, false),
		seedCourse(t, "defi-101", 9, true),
	} {
		courses[c.ID] = c
	}
	h := NewListCoursesHandler(courses)

	track := uint16(7)
	result, err := h.Handle(context.Background(), ListCoursesQuery{TrackID: &track})
	require.NoError(t, err)

	require.Len(t, result.Courses, 2)
	assert.Equal(t, "anchor-301", result.Courses[0].ID)
	assert.Equal(t, "rust-201", result.Courses[1].ID)
	assert.Equal(t, 2, result.Total)

	result, err = h.Handle(context.Background(), ListCoursesQuery{TrackID: &track, IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, result.Courses, 3)
}

func TestListCoursesPagination(t *testing.T) {
	courses := stubCourses{}
	for _, id := range []string{"a-101", "b-101", "c-101", "d-101", "e-101"} {
		c := seedCourse(t, id, 1, true)
		courses[c.ID] = c
	}
	h := NewListCoursesHandler(courses)

	result, err := h.Handle(context.Background(), ListCoursesQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)

	require.Len(t, result.Courses, 2)
	assert.Equal(t, "c-101", result.Courses[0].ID)
	assert.Equal(t, "d-101", result.Courses[1].ID)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 2, result.Page)
}

func TestGetEnrollmentDetail(t *testing.T) {
	crs := seedCourse(t, testCourse, 7, true)
	enr := enrollment.New(shared.LearnerID(testLearner), crs.ID, crs.Version, testNow)
	require.NoError(t, enr.CompleteLesson(1, 4))
	require.NoError(t, enr.CompleteLesson(3, 4))

	h := NewGetEnrollmentHandler(
		stubEnrollments{enrollKey(enr.Learner, enr.Course): enr},
		stubCourses{crs.ID: crs},
	)

	result, err := h.Handle(context.Background(), GetEnrollmentQuery{
		LearnerID: testLearner,
		CourseID:  testCourse,
	})
	require.NoError(t, err)

	assert.Equal(t, uint8(2), result.LessonsCompleted)
	assert.Equal(t, []bool{false, true, false, true}, result.LessonStates)
	assert.Equal(t, crs.Version, result.CurrentVersion)
	assert.Nil(t, result.CompletedAt)
}

func TestGetEnrollmentDetailNotEnrolled(t *testing.T) {
	h := NewGetEnrollmentHandler(stubEnrollments{}, stubCourses{})

	_, err := h.Handle(context.Background(), GetEnrollmentQuery{
		LearnerID: testLearner,
		CourseID:  testCourse,
	})
	assert.ErrorIs(t, err, shared.ErrNotEnrolled)
}

func TestGetPlatformStatus(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.CreateSeason(1, shared.MintID("mint-season-1"), testNow.Unix()))

	h := NewGetPlatformStatusHandler(stubPlatform{cfg: cfg})

	result, err := h.Handle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint16(1), result.CurrentSeason)
	assert.True(t, result.SeasonActive)
	assert.Equal(t, "mint-season-1", result.CurrentMint)
	assert.Equal(t, uint32(testMaxDailyXP), result.MaxDailyXP)
}

func TestGetPlatformStatusNoOpenSeason(t *testing.T) {
	h := NewGetPlatformStatusHandler(stubPlatform{cfg: testConfig(t)})

	result, err := h.Handle(context.Background())
	require.NoError(t, err)

	assert.False(t, result.SeasonActive)
	assert.Empty(t, result.CurrentMint)
	assert.Zero(t, result.SeasonStartedAt)
}

func TestGetPlatformStatusUninitialized(t *testing.T) {
	h := NewGetPlatformStatusHandler(stubPlatform{})

	_, err := h.Handle(context.Background())
	assert.ErrorIs(t, err, shared.ErrPlatformNotInitialized)
}
