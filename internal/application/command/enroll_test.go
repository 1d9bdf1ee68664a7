package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/academy-ledger/internal/domain/course"
	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// brokenEnrollmentStore fails every enrollment Get with the given error,
// simulating a storage outage mid-transaction.
type brokenEnrollmentStore struct {
	*memStore
	err error
}

func (s *brokenEnrollmentStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return s.memStore.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		repos.Enrollments = &brokenEnrollmentRepo{Repository: repos.Enrollments, err: s.err}
		return fn(ctx, repos)
	})
}

type brokenEnrollmentRepo struct {
	enrollment.Repository
	err error
}

func (r *brokenEnrollmentRepo) Get(context.Context, shared.LearnerID, shared.CourseID) (*enrollment.Enrollment, error) {
	return nil, r.err
}

func TestEnrollHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("enrolls and snapshots the course version", func(t *testing.T) {
		store := seededStore()
		publisher := &capturePublisher{}
		handler := NewEnrollHandler(store, publisher)

		result, err := handler.Handle(ctx, EnrollCommand{
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		require.NoError(t, err)

		assert.Equal(t, uint16(1), result.EnrolledVersion)
		assert.Equal(t, testNow, result.EnrolledAt)

		st := store.snapshot()
		assert.Equal(t, uint32(1), st.courses[shared.CourseID(testCourse)].TotalEnrollments)
		require.Contains(t, st.enrollments, enrollmentKey(testLearner, testCourse))
		require.Len(t, publisher.byType(shared.EventEnrolled), 1)
	})

	t.Run("rejects a second enrollment for the same pair", func(t *testing.T) {
		store := seededStore()
		handler := NewEnrollHandler(store, &capturePublisher{})

		cmd := EnrollCommand{LearnerID: testLearner, CourseID: testCourse, Timestamp: testNow}
		_, err := handler.Handle(ctx, cmd)
		require.NoError(t, err)

		_, err = handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrAlreadyEnrolled)

		st := store.snapshot()
		assert.Equal(t, uint32(1), st.courses[shared.CourseID(testCourse)].TotalEnrollments)
	})

	t.Run("rejects an inactive course", func(t *testing.T) {
		store := seededStore()
		store.seed(func(st *memState) { st.courses[shared.CourseID(testCourse)].IsActive = false })
		handler := NewEnrollHandler(store, &capturePublisher{})

		_, err := handler.Handle(ctx, EnrollCommand{
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrCourseNotActive)
	})

	t.Run("rejects an unknown learner", func(t *testing.T) {
		store := seededStore()
		handler := NewEnrollHandler(store, &capturePublisher{})

		_, err := handler.Handle(ctx, EnrollCommand{
			LearnerID: "99999999-9999-9999-9999-999999999999",
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrLearnerNotFound)
	})

	t.Run("requires the immediate prerequisite to be completed", func(t *testing.T) {
		store := seededStore()
		store.seed(func(st *memState) {
			advanced, _ := course.New("solana-201", course.Params{
				Creator:          shared.LearnerID(testCreator),
				ContentAuthority: shared.LearnerID(testCreator),
				LessonCount:      4,
				Difficulty:       2,
				XPPerLesson:      100,
				TrackID:          7,
				TrackLevel:       2,
				Prerequisite:     shared.CourseID(testCourse),
			}, testNow)
			st.courses[advanced.ID] = advanced
		})
		handler := NewEnrollHandler(store, &capturePublisher{})

		// No enrollment in the prerequisite at all.
		_, err := handler.Handle(ctx, EnrollCommand{
			LearnerID: testLearner,
			CourseID:  "solana-201",
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrPrerequisiteNotMet)

		// Enrolled but not completed.
		seedEnrollment(store, nil)
		_, err = handler.Handle(ctx, EnrollCommand{
			LearnerID: testLearner,
			CourseID:  "solana-201",
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrPrerequisiteNotMet)

		// Completed prerequisite unlocks the course.
		store.seed(func(st *memState) {
			e := st.enrollments[enrollmentKey(testLearner, testCourse)]
			completeAll(e, 4, testNow.Unix())
		})
		_, err = handler.Handle(ctx, EnrollCommand{
			LearnerID: testLearner,
			CourseID:  "solana-201",
			Timestamp: testNow,
		})
		assert.NoError(t, err)
	})

	t.Run("a failing prerequisite lookup is not a rejection", func(t *testing.T) {
		store := seededStore()
		store.seed(func(st *memState) {
			advanced, _ := course.New("solana-201", course.Params{
				Creator:          shared.LearnerID(testCreator),
				ContentAuthority: shared.LearnerID(testCreator),
				LessonCount:      4,
				Difficulty:       2,
				XPPerLesson:      100,
				TrackID:          7,
				TrackLevel:       2,
				Prerequisite:     shared.CourseID(testCourse),
			}, testNow)
			st.courses[advanced.ID] = advanced
		})

		dbDown := errors.New("connection reset")
		handler := NewEnrollHandler(&brokenEnrollmentStore{memStore: store, err: dbDown}, &capturePublisher{})

		_, err := handler.Handle(ctx, EnrollCommand{
			LearnerID: testLearner,
			CourseID:  "solana-201",
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, dbDown)
		assert.NotErrorIs(t, err, shared.ErrPrerequisiteNotMet)
	})
}

func TestCloseEnrollmentHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("closes a completed enrollment immediately", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, func(e *enrollment.Enrollment) {
			completeAll(e, 4, testNow.Unix())
		})
		publisher := &capturePublisher{}
		handler := NewCloseEnrollmentHandler(store, publisher)

		result, err := handler.Handle(ctx, CloseEnrollmentCommand{
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		require.NoError(t, err)
		assert.True(t, result.Completed)

		st := store.snapshot()
		assert.NotContains(t, st.enrollments, enrollmentKey(testLearner, testCourse))

		events := publisher.byType(shared.EventEnrollmentClosed)
		require.Len(t, events, 1)
		assert.True(t, events[0].(shared.EnrollmentClosedEvent).Completed)
	})

	t.Run("holds an abandoned enrollment for the cooldown", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		handler := NewCloseEnrollmentHandler(store, &capturePublisher{})

		_, err := handler.Handle(ctx, CloseEnrollmentCommand{
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow.Add(23 * time.Hour),
		})
		assert.ErrorIs(t, err, shared.ErrUnenrollCooldown)

		result, err := handler.Handle(ctx, CloseEnrollmentCommand{
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow.Add(24 * time.Hour),
		})
		require.NoError(t, err)
		assert.False(t, result.Completed)
	})

	t.Run("rejects a missing enrollment", func(t *testing.T) {
		store := seededStore()
		handler := NewCloseEnrollmentHandler(store, &capturePublisher{})

		_, err := handler.Handle(ctx, CloseEnrollmentCommand{
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrNotEnrolled)
	})
}
