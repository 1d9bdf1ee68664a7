package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

func TestCompleteLessonHandler_Handle(t *testing.T) {
	ctx := context.Background()

	newHandler := func(store *memStore) (*CompleteLessonHandler, *capturePublisher, *fakeRewardIssuer) {
		publisher := &capturePublisher{}
		rewards := &fakeRewardIssuer{}
		return NewCompleteLessonHandler(store, publisher, rewards), publisher, rewards
	}

	t.Run("records progress, charges budget, and mints", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		handler, publisher, rewards := newHandler(store)

		result, err := handler.Handle(ctx, CompleteLessonCommand{
			Actor:       testSigner,
			LearnerID:   testLearner,
			CourseID:    testCourse,
			LessonIndex: 0,
			Timestamp:   testNow,
		})
		require.NoError(t, err)

		assert.Equal(t, uint32(100), result.XPEarned)
		assert.Equal(t, uint8(1), result.LessonsCompleted)
		assert.False(t, result.CourseCompleted)
		assert.Equal(t, uint16(1), result.CurrentStreak)
		assert.Equal(t, uint32(400), result.RemainingDailyXP)

		mints := rewards.minted()
		require.Len(t, mints, 1)
		assert.Equal(t, shared.LearnerID(testLearner), mints[0].Recipient)
		assert.Equal(t, uint32(100), mints[0].Amount)
		assert.Equal(t, uint16(1), mints[0].Auth.Season)
		assert.Equal(t, shared.MintID(testMint), mints[0].Auth.Mint)

		require.Len(t, publisher.byType(shared.EventLessonCompleted), 1)

		st := store.snapshot()
		profile := st.learners[shared.LearnerID(testLearner)]
		assert.Equal(t, uint32(100), profile.XPEarnedToday)
		assert.True(t, st.enrollments[enrollmentKey(testLearner, testCourse)].LessonCompleted(0))
	})

	t.Run("rejects a non-backend actor", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		handler, _, _ := newHandler(store)

		_, err := handler.Handle(ctx, CompleteLessonCommand{
			Actor:     testLearner,
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("rejects a duplicate lesson", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		handler, _, _ := newHandler(store)

		cmd := CompleteLessonCommand{
			Actor:       testSigner,
			LearnerID:   testLearner,
			CourseID:    testCourse,
			LessonIndex: 2,
			Timestamp:   testNow,
		}
		_, err := handler.Handle(ctx, cmd)
		require.NoError(t, err)

		_, err = handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrLessonAlreadyCompleted)
	})

	t.Run("rejects an out of bounds lesson", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		handler, _, _ := newHandler(store)

		_, err := handler.Handle(ctx, CompleteLessonCommand{
			Actor:       testSigner,
			LearnerID:   testLearner,
			CourseID:    testCourse,
			LessonIndex: 4,
			Timestamp:   testNow,
		})
		assert.ErrorIs(t, err, shared.ErrLessonOutOfBounds)
	})

	t.Run("still completes lessons after the course is deactivated", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		store.seed(func(st *memState) { st.courses[shared.CourseID(testCourse)].IsActive = false })
		handler, _, rewards := newHandler(store)

		result, err := handler.Handle(ctx, CompleteLessonCommand{
			Actor:       testSigner,
			LearnerID:   testLearner,
			CourseID:    testCourse,
			LessonIndex: 0,
			Timestamp:   testNow,
		})
		require.NoError(t, err)

		assert.Equal(t, uint8(1), result.LessonsCompleted)
		assert.Len(t, rewards.minted(), 1)
	})

	t.Run("rejects when not enrolled", func(t *testing.T) {
		store := seededStore()
		handler, _, _ := newHandler(store)

		_, err := handler.Handle(ctx, CompleteLessonCommand{
			Actor:     testSigner,
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrNotEnrolled)
	})

	t.Run("rejects when the season is closed", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		store.seed(func(st *memState) { st.config.CloseSeason() })
		handler, _, _ := newHandler(store)

		_, err := handler.Handle(ctx, CompleteLessonCommand{
			Actor:     testSigner,
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrSeasonNotActive)
	})

	t.Run("enforces the daily XP budget across lessons", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		handler, _, _ := newHandler(store)

		// 5 lessons at 100 XP would hit 500; the course only has 4, so
		// tighten the budget instead.
		store.seed(func(st *memState) { st.config.MaxDailyXP = 250 })

		for i := uint8(0); i < 2; i++ {
			_, err := handler.Handle(ctx, CompleteLessonCommand{
				Actor:       testSigner,
				LearnerID:   testLearner,
				CourseID:    testCourse,
				LessonIndex: i,
				Timestamp:   testNow,
			})
			require.NoError(t, err)
		}

		_, err := handler.Handle(ctx, CompleteLessonCommand{
			Actor:       testSigner,
			LearnerID:   testLearner,
			CourseID:    testCourse,
			LessonIndex: 2,
			Timestamp:   testNow,
		})
		assert.ErrorIs(t, err, shared.ErrDailyXPLimitExceeded)

		// The failed attempt must not leave the lesson bit set.
		st := store.snapshot()
		assert.False(t, st.enrollments[enrollmentKey(testLearner, testCourse)].LessonCompleted(2))
	})

	t.Run("a failed mint rolls back all progress", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		publisher := &capturePublisher{}
		rewards := &fakeRewardIssuer{fail: errIssuerDown}
		handler := NewCompleteLessonHandler(store, publisher, rewards)

		_, err := handler.Handle(ctx, CompleteLessonCommand{
			Actor:       testSigner,
			LearnerID:   testLearner,
			CourseID:    testCourse,
			LessonIndex: 0,
			Timestamp:   testNow,
		})
		require.ErrorIs(t, err, shared.ErrRewardMintFailed)

		st := store.snapshot()
		assert.False(t, st.enrollments[enrollmentKey(testLearner, testCourse)].LessonCompleted(0))
		assert.Equal(t, uint32(0), st.learners[shared.LearnerID(testLearner)].XPEarnedToday)
		assert.Empty(t, publisher.events)
	})

	t.Run("consecutive days grow the streak and emit milestones", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		store.seed(func(st *memState) {
			p := st.learners[shared.LearnerID(testLearner)]
			p.CurrentStreak = 6
			p.LongestStreak = 6
			p.LastActivityDate = testNow.Add(-24 * time.Hour).Unix()
		})
		handler, publisher, _ := newHandler(store)

		result, err := handler.Handle(ctx, CompleteLessonCommand{
			Actor:       testSigner,
			LearnerID:   testLearner,
			CourseID:    testCourse,
			LessonIndex: 0,
			Timestamp:   testNow,
		})
		require.NoError(t, err)

		assert.Equal(t, uint16(7), result.CurrentStreak)
		assert.Equal(t, "continued", result.StreakOutcome)

		milestones := publisher.byType(shared.EventStreakMilestone)
		require.Len(t, milestones, 1)
		assert.Equal(t, uint16(7), milestones[0].(shared.StreakMilestoneEvent).Milestone)
	})

	t.Run("a covered gap consumes freezes and emits the freeze event", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		store.seed(func(st *memState) {
			p := st.learners[shared.LearnerID(testLearner)]
			p.CurrentStreak = 10
			p.LongestStreak = 10
			p.StreakFreezes = 3
			p.LastActivityDate = testNow.Add(-3 * 24 * time.Hour).Unix()
		})
		handler, publisher, _ := newHandler(store)

		result, err := handler.Handle(ctx, CompleteLessonCommand{
			Actor:       testSigner,
			LearnerID:   testLearner,
			CourseID:    testCourse,
			LessonIndex: 0,
			Timestamp:   testNow,
		})
		require.NoError(t, err)

		assert.Equal(t, uint16(11), result.CurrentStreak)
		assert.Equal(t, "saved_by_freezes", result.StreakOutcome)

		saved := publisher.byType(shared.EventStreakFreezesUsed)
		require.Len(t, saved, 1)
		event := saved[0].(shared.StreakFreezesUsedEvent)
		assert.Equal(t, uint8(2), event.FreezesUsed)
		assert.Equal(t, uint8(1), event.FreezesRemaining)
	})

	t.Run("an uncovered gap breaks the streak and emits the broken event", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		store.seed(func(st *memState) {
			p := st.learners[shared.LearnerID(testLearner)]
			p.CurrentStreak = 30
			p.LongestStreak = 30
			p.LastActivityDate = testNow.Add(-5 * 24 * time.Hour).Unix()
		})
		handler, publisher, _ := newHandler(store)

		result, err := handler.Handle(ctx, CompleteLessonCommand{
			Actor:       testSigner,
			LearnerID:   testLearner,
			CourseID:    testCourse,
			LessonIndex: 0,
			Timestamp:   testNow,
		})
		require.NoError(t, err)

		assert.Equal(t, uint16(1), result.CurrentStreak)
		assert.Equal(t, "broken", result.StreakOutcome)

		broken := publisher.byType(shared.EventStreakBroken)
		require.Len(t, broken, 1)
		event := broken[0].(shared.StreakBrokenEvent)
		assert.Equal(t, uint16(30), event.FinalStreak)
		assert.Equal(t, uint16(4), event.DaysMissed)

		st := store.snapshot()
		assert.Equal(t, uint16(30), st.learners[shared.LearnerID(testLearner)].LongestStreak)
	})

	t.Run("completing the last lesson reports course completion", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		handler, _, _ := newHandler(store)

		var result *CompleteLessonResult
		var err error
		for i := uint8(0); i < 4; i++ {
			result, err = handler.Handle(ctx, CompleteLessonCommand{
				Actor:       testSigner,
				LearnerID:   testLearner,
				CourseID:    testCourse,
				LessonIndex: i,
				Timestamp:   testNow,
			})
			require.NoError(t, err)
		}
		assert.True(t, result.CourseCompleted)
		assert.Equal(t, uint8(4), result.LessonsCompleted)
	})
}
