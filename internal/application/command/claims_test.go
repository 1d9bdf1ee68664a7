package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

func TestClaimCompletionBonusHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("mints the bonus once", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, func(e *enrollment.Enrollment) {
			completeAll(e, 4, testNow.Unix())
		})
		publisher := &capturePublisher{}
		rewards := &fakeRewardIssuer{}
		handler := NewClaimCompletionBonusHandler(store, publisher, rewards)

		cmd := ClaimCompletionBonusCommand{
			Actor:     testLearner,
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		}
		result, err := handler.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, uint32(150), result.BonusXP)

		mints := rewards.minted()
		require.Len(t, mints, 1)
		assert.Equal(t, uint32(150), mints[0].Amount)
		require.Len(t, publisher.byType(shared.EventCompletionBonusClaimed), 1)

		_, err = handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrBonusAlreadyClaimed)
	})

	t.Run("rejects a claim by anyone but the learner", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, func(e *enrollment.Enrollment) {
			completeAll(e, 4, testNow.Unix())
		})
		handler := NewClaimCompletionBonusHandler(store, &capturePublisher{}, &fakeRewardIssuer{})

		_, err := handler.Handle(ctx, ClaimCompletionBonusCommand{
			Actor:     testSigner,
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("rejects an unfinalized enrollment", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, nil)
		handler := NewClaimCompletionBonusHandler(store, &capturePublisher{}, &fakeRewardIssuer{})

		_, err := handler.Handle(ctx, ClaimCompletionBonusCommand{
			Actor:     testLearner,
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrCourseNotFinalized)
	})

	t.Run("charges the bonus against the daily budget", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, func(e *enrollment.Enrollment) {
			completeAll(e, 4, testNow.Unix())
		})
		store.seed(func(st *memState) {
			p := st.learners[shared.LearnerID(testLearner)]
			_ = p.ConsumeDailyXP(400, testNow.Unix(), testMaxDailyXP)
		})
		handler := NewClaimCompletionBonusHandler(store, &capturePublisher{}, &fakeRewardIssuer{})

		_, err := handler.Handle(ctx, ClaimCompletionBonusCommand{
			Actor:     testLearner,
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrDailyXPLimitExceeded)

		// The failed claim must not burn the one-shot flag.
		st := store.snapshot()
		assert.False(t, st.enrollments[enrollmentKey(testLearner, testCourse)].BonusClaimed)
	})

	t.Run("a zero bonus claims the flag without minting", func(t *testing.T) {
		store := seededStore()
		seedEnrollment(store, func(e *enrollment.Enrollment) {
			completeAll(e, 4, testNow.Unix())
		})
		store.seed(func(st *memState) {
			st.courses[shared.CourseID(testCourse)].CompletionBonusXP = 0
		})
		rewards := &fakeRewardIssuer{}
		handler := NewClaimCompletionBonusHandler(store, &capturePublisher{}, rewards)

		result, err := handler.Handle(ctx, ClaimCompletionBonusCommand{
			Actor:     testLearner,
			LearnerID: testLearner,
			CourseID:  testCourse,
			Timestamp: testNow,
		})
		require.NoError(t, err)
		assert.Equal(t, uint32(0), result.BonusXP)
		assert.Empty(t, rewards.minted())

		st := store.snapshot()
		assert.True(t, st.enrollments[enrollmentKey(testLearner, testCourse)].BonusClaimed)
	})
}

func TestClaimAchievementHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("caps the requested amount at the ceiling", func(t *testing.T) {
		store := seededStore()
		publisher := &capturePublisher{}
		rewards := &fakeRewardIssuer{}
		handler := NewClaimAchievementHandler(store, publisher, rewards)

		result, err := handler.Handle(ctx, ClaimAchievementCommand{
			Actor:            testSigner,
			LearnerID:        testLearner,
			AchievementIndex: 3,
			RequestedXP:      10_000,
			Timestamp:        testNow,
		})
		require.NoError(t, err)
		assert.Equal(t, uint32(testMaxAchievementXP), result.AwardedXP)

		mints := rewards.minted()
		require.Len(t, mints, 1)
		assert.Equal(t, uint32(testMaxAchievementXP), mints[0].Amount)

		events := publisher.byType(shared.EventAchievementClaimed)
		require.Len(t, events, 1)
		assert.Equal(t, uint8(3), events[0].(shared.AchievementClaimedEvent).AchievementIndex)
	})

	t.Run("rejects a repeat claim of the same slot", func(t *testing.T) {
		store := seededStore()
		handler := NewClaimAchievementHandler(store, &capturePublisher{}, &fakeRewardIssuer{})

		cmd := ClaimAchievementCommand{
			Actor:            testSigner,
			LearnerID:        testLearner,
			AchievementIndex: 3,
			RequestedXP:      50,
			Timestamp:        testNow,
		}
		_, err := handler.Handle(ctx, cmd)
		require.NoError(t, err)

		_, err = handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrAchievementAlreadyClaimed)
	})

	t.Run("rejects a non-backend actor", func(t *testing.T) {
		store := seededStore()
		handler := NewClaimAchievementHandler(store, &capturePublisher{}, &fakeRewardIssuer{})

		_, err := handler.Handle(ctx, ClaimAchievementCommand{
			Actor:       testAuthority,
			LearnerID:   testLearner,
			RequestedXP: 50,
			Timestamp:   testNow,
		})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("a rate limited claim leaves the slot unclaimed", func(t *testing.T) {
		store := seededStore()
		store.seed(func(st *memState) {
			p := st.learners[shared.LearnerID(testLearner)]
			_ = p.ConsumeDailyXP(testMaxDailyXP, testNow.Unix(), testMaxDailyXP)
		})
		handler := NewClaimAchievementHandler(store, &capturePublisher{}, &fakeRewardIssuer{})

		_, err := handler.Handle(ctx, ClaimAchievementCommand{
			Actor:            testSigner,
			LearnerID:        testLearner,
			AchievementIndex: 9,
			RequestedXP:      50,
			Timestamp:        testNow,
		})
		assert.ErrorIs(t, err, shared.ErrDailyXPLimitExceeded)

		st := store.snapshot()
		assert.False(t, st.learners[shared.LearnerID(testLearner)].AchievementClaimed(9))
	})

	t.Run("a failed mint rolls back the claim", func(t *testing.T) {
		store := seededStore()
		handler := NewClaimAchievementHandler(store, &capturePublisher{}, &fakeRewardIssuer{fail: errIssuerDown})

		_, err := handler.Handle(ctx, ClaimAchievementCommand{
			Actor:            testSigner,
			LearnerID:        testLearner,
			AchievementIndex: 5,
			RequestedXP:      50,
			Timestamp:        testNow,
		})
		require.ErrorIs(t, err, shared.ErrRewardMintFailed)

		st := store.snapshot()
		assert.False(t, st.learners[shared.LearnerID(testLearner)].AchievementClaimed(5))
		assert.Equal(t, uint32(0), st.learners[shared.LearnerID(testLearner)].XPEarnedToday)
	})
}
