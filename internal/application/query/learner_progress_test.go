package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/learner"
	"github.com/academy-hub/academy-ledger/internal/domain/platform"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

const (
	testLearner = "11111111-1111-1111-1111-111111111111"
	testCourse  = "solana-101"

	testMaxDailyXP = 500
)

var testNow = time.Unix(1_700_000_000, 0).UTC()

func testConfig(t *testing.T) *platform.Config {
	t.Helper()
	cfg, err := platform.NewConfig("authority-wallet", "backend-signer", testMaxDailyXP, 250, testNow)
	require.NoError(t, err)
	return cfg
}

func progressHandler(t *testing.T, profile *learner.Profile, enrollments stubEnrollments) *GetLearnerProgressHandler {
	t.Helper()
	learners := stubLearners{}
	if profile != nil {
		learners[profile.Owner] = profile
	}
	h := NewGetLearnerProgressHandler(learners, enrollments, stubPlatform{cfg: testConfig(t)})
	h.clock = func() time.Time { return testNow }
	return h
}

func TestGetLearnerProgress(t *testing.T) {
	profile, err := learner.NewProfile(shared.LearnerID(testLearner), testNow)
	require.NoError(t, err)
	profile.CurrentStreak = 5
	profile.LongestStreak = 9
	profile.StreakFreezes = 1
	profile.LastActivityDate = testNow.Unix()
	profile.XPEarnedToday = 300
	profile.LastXPDay = testNow.Unix() / 86400
	profile.ClaimedAchievements.Set(0)
	profile.ClaimedAchievements.Set(7)
	profile.ReferralCount = 2

	h := progressHandler(t, profile, stubEnrollments{})

	result, err := h.Handle(context.Background(), GetLearnerProgressQuery{LearnerID: testLearner})
	require.NoError(t, err)

	assert.Equal(t, testLearner, result.LearnerID)
	assert.Equal(t, uint16(5), result.CurrentStreak)
	assert.Equal(t, uint16(9), result.LongestStreak)
	assert.Equal(t, uint8(1), result.StreakFreezes)
	assert.False(t, result.StreakAtRisk, "active today means the streak is safe")
	assert.Equal(t, uint32(300), result.XPEarnedToday)
	assert.Equal(t, uint32(testMaxDailyXP-300), result.RemainingDailyXP)
	assert.Equal(t, uint16(2), result.AchievementCount)
	assert.Equal(t, uint16(2), result.ReferralCount)
	assert.Empty(t, result.Enrollments)
}

func TestGetLearnerProgressStaleXPDay(t *testing.T) {
	profile, err := learner.NewProfile(shared.LearnerID(testLearner), testNow)
	require.NoError(t, err)
	profile.XPEarnedToday = 450
	profile.LastXPDay = testNow.Unix()/86400 - 3

	h := progressHandler(t, profile, stubEnrollments{})

	result, err := h.Handle(context.Background(), GetLearnerProgressQuery{LearnerID: testLearner})
	require.NoError(t, err)

	assert.Zero(t, result.XPEarnedToday)
	assert.Equal(t, uint32(testMaxDailyXP), result.RemainingDailyXP)
}

func TestGetLearnerProgressStreakAtRisk(t *testing.T) {
	profile, err := learner.NewProfile(shared.LearnerID(testLearner), testNow)
	require.NoError(t, err)
	profile.CurrentStreak = 12
	profile.LastActivityDate = testNow.Add(-24 * time.Hour).Unix()

	h := progressHandler(t, profile, stubEnrollments{})

	result, err := h.Handle(context.Background(), GetLearnerProgressQuery{LearnerID: testLearner})
	require.NoError(t, err)
	assert.True(t, result.StreakAtRisk)
}

func TestGetLearnerProgressFreezeCoversGap(t *testing.T) {
	profile, err := learner.NewProfile(shared.LearnerID(testLearner), testNow)
	require.NoError(t, err)
	profile.CurrentStreak = 12
	profile.StreakFreezes = 2
	profile.LastActivityDate = testNow.Add(-24 * time.Hour).Unix()

	h := progressHandler(t, profile, stubEnrollments{})

	result, err := h.Handle(context.Background(), GetLearnerProgressQuery{LearnerID: testLearner})
	require.NoError(t, err)
	assert.False(t, result.StreakAtRisk)
}

func TestGetLearnerProgressWithEnrollments(t *testing.T) {
	profile, err := learner.NewProfile(shared.LearnerID(testLearner), testNow)
	require.NoError(t, err)

	open := enrollment.New(profile.Owner, shared.CourseID(testCourse), 1, testNow)
	require.NoError(t, open.CompleteLesson(0, 4))
	require.NoError(t, open.CompleteLesson(2, 4))

	done := enrollment.New(profile.Owner, shared.CourseID("rust-201"), 3, testNow)
	for i := uint8(0); i < 4; i++ {
		require.NoError(t, done.CompleteLesson(i, 4))
	}
	require.NoError(t, done.Finalize(4, testNow.Unix()))
	require.NoError(t, done.ClaimBonus())
	require.NoError(t, done.AttachCredential("asset-xyz"))

	enrollments := stubEnrollments{
		enrollKey(open.Learner, open.Course): open,
		enrollKey(done.Learner, done.Course): done,
	}

	h := progressHandler(t, profile, enrollments)

	result, err := h.Handle(context.Background(), GetLearnerProgressQuery{
		LearnerID:          testLearner,
		IncludeEnrollments: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Enrollments, 2)

	first := result.Enrollments[0]
	assert.Equal(t, "rust-201", first.CourseID)
	assert.Equal(t, uint16(3), first.EnrolledVersion)
	assert.Equal(t, uint8(4), first.LessonsCompleted)
	assert.True(t, first.Completed)
	assert.True(t, first.BonusClaimed)
	assert.Equal(t, "asset-xyz", first.CredentialAsset)

	second := result.Enrollments[1]
	assert.Equal(t, testCourse, second.CourseID)
	assert.Equal(t, uint8(2), second.LessonsCompleted)
	assert.False(t, second.Completed)
}

func TestGetLearnerProgressUnknownLearner(t *testing.T) {
	h := progressHandler(t, nil, stubEnrollments{})

	_, err := h.Handle(context.Background(), GetLearnerProgressQuery{LearnerID: testLearner})
	assert.ErrorIs(t, err, shared.ErrLearnerNotFound)
}

func TestGetLearnerProgressRequiresLearnerID(t *testing.T) {
	h := progressHandler(t, nil, stubEnrollments{})

	_, err := h.Handle(context.Background(), GetLearnerProgressQuery{})
	assert.ErrorContains(t, err, "learner_id is required")
}
