package command

import (
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/course"
	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/learner"
	"github.com/academy-hub/academy-ledger/internal/domain/platform"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

const (
	testAuthority = "authority-wallet"
	testSigner    = "backend-signer"
	testLearner   = "11111111-1111-1111-1111-111111111111"
	testReferrer  = "22222222-2222-2222-2222-222222222222"
	testCreator   = "33333333-3333-3333-3333-333333333333"
	testCourse    = "solana-101"
	testMint      = "mint-season-1"

	testMaxDailyXP       = 500
	testMaxAchievementXP = 250
)

var testNow = time.Unix(1_700_000_000, 0).UTC()

// seededStore returns a store with an initialized platform, an open season 1,
// one active course, and one learner profile.
func seededStore() *memStore {
	store := newMemStore()
	store.seed(func(st *memState) {
		cfg, _ := platform.NewConfig(testAuthority, testSigner, testMaxDailyXP, testMaxAchievementXP, testNow)
		_ = cfg.CreateSeason(1, shared.MintID(testMint), testNow.Unix())
		st.config = cfg

		crs, _ := course.New(shared.CourseID(testCourse), course.Params{
			Creator:                 shared.LearnerID(testCreator),
			ContentAuthority:        shared.LearnerID(testCreator),
			LessonCount:             4,
			Difficulty:              1,
			XPPerLesson:             100,
			TrackID:                 7,
			TrackLevel:              1,
			CompletionBonusXP:       150,
			CreatorRewardXP:         50,
			MinCompletionsForReward: 1,
		}, testNow)
		st.courses[crs.ID] = crs

		profile, _ := learner.NewProfile(shared.LearnerID(testLearner), testNow)
		st.learners[profile.Owner] = profile
	})
	return store
}

// seedEnrollment adds an enrollment for the test learner and course.
func seedEnrollment(store *memStore, mutate func(e *enrollment.Enrollment)) {
	store.seed(func(st *memState) {
		crs := st.courses[shared.CourseID(testCourse)]
		e := enrollment.New(shared.LearnerID(testLearner), crs.ID, crs.Version, testNow)
		if mutate != nil {
			mutate(e)
		}
		st.enrollments[enrollmentKey(e.Learner, e.Course)] = e
	})
}

// completeAll sets every lesson bit and finalizes the enrollment.
func completeAll(e *enrollment.Enrollment, lessonCount uint8, now int64) {
	for i := uint8(0); i < lessonCount; i++ {
		_ = e.CompleteLesson(i, lessonCount)
	}
	_ = e.Finalize(lessonCount, now)
}
