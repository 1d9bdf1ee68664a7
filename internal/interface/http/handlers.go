package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/academy-hub/academy-ledger/internal/application/command"
	"github.com/academy-hub/academy-ledger/internal/application/query"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
	"github.com/academy-hub/academy-ledger/internal/infrastructure/persistence/redis"
	"github.com/academy-hub/academy-ledger/pkg/logger"
)

// decode reads a JSON body into dst, rejecting unknown fields.
func decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// guardReplay reserves the request nonce when replay protection is wired.
// The returned release func undoes the reservation after a failed command
// so the caller may retry with the same nonce.
func (s *Server) guardReplay(w http.ResponseWriter, r *http.Request) (release func(), ok bool) {
	nonce := r.Header.Get("X-Request-Nonce")
	if s.deps.ReplayGuard == nil || nonce == "" {
		return func() {}, true
	}
	if err := s.deps.ReplayGuard.Consume(r.Context(), nonce); err != nil {
		if errors.Is(err, shared.ErrAlreadyProcessed) {
			writeError(w, http.StatusConflict, "duplicate_request", "this request was already processed")
		} else {
			s.writeDomainError(w, err)
		}
		return nil, false
	}
	ctx := r.Context()
	return func() { _ = s.deps.ReplayGuard.Release(ctx, nonce) }, true
}

// ══════════════════════════════════════════════════════════════════════════════
// PLATFORM COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleInitializePlatform(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Authority        string `json:"authority"`
		BackendSigner    string `json:"backend_signer"`
		MaxDailyXP       uint32 `json:"max_daily_xp"`
		MaxAchievementXP uint32 `json:"max_achievement_xp"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.InitializePlatformCommand{
		Authority:        req.Authority,
		BackendSigner:    req.BackendSigner,
		MaxDailyXP:       req.MaxDailyXP,
		MaxAchievementXP: req.MaxAchievementXP,
		CorrelationID:    requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.InitializePlatform.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.PlatformStatusKey())
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var req struct {
		BackendSigner    *string `json:"backend_signer,omitempty"`
		MaxDailyXP       *uint32 `json:"max_daily_xp,omitempty"`
		MaxAchievementXP *uint32 `json:"max_achievement_xp,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.UpdateConfigCommand{
		Actor:            principal.ID,
		BackendSigner:    req.BackendSigner,
		MaxDailyXP:       req.MaxDailyXP,
		MaxAchievementXP: req.MaxAchievementXP,
		CorrelationID:    requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.UpdateConfig.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.PlatformStatusKey())
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateSeason(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var req struct {
		Season uint16 `json:"season"`
		Mint   string `json:"mint"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.CreateSeasonCommand{
		Actor:         principal.ID,
		Season:        req.Season,
		Mint:          req.Mint,
		CorrelationID: requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.CreateSeason.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.PlatformStatusKey())
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleCloseSeason(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	cmd := command.CloseSeasonCommand{
		Actor:         principal.ID,
		CorrelationID: requestID(r.Context()),
	}
	res, err := s.deps.CloseSeason.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.PlatformStatusKey())
	writeJSON(w, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var req struct {
		CourseID                string `json:"course_id"`
		Creator                 string `json:"creator"`
		ContentAuthority        string `json:"content_authority"`
		ContentLocator          string `json:"content_locator"`
		LessonCount             uint8  `json:"lesson_count"`
		Difficulty              uint8  `json:"difficulty"`
		XPPerLesson             uint32 `json:"xp_per_lesson"`
		TrackID                 uint16 `json:"track_id"`
		TrackLevel              uint8  `json:"track_level"`
		Prerequisite            string `json:"prerequisite,omitempty"`
		CompletionBonusXP       uint32 `json:"completion_bonus_xp"`
		CreatorRewardXP         uint32 `json:"creator_reward_xp"`
		MinCompletionsForReward uint16 `json:"min_completions_for_reward"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.CreateCourseCommand{
		Actor:                   principal.ID,
		CourseID:                req.CourseID,
		Creator:                 req.Creator,
		ContentAuthority:        req.ContentAuthority,
		ContentLocator:          req.ContentLocator,
		LessonCount:             req.LessonCount,
		Difficulty:              req.Difficulty,
		XPPerLesson:             req.XPPerLesson,
		TrackID:                 req.TrackID,
		TrackLevel:              req.TrackLevel,
		Prerequisite:            req.Prerequisite,
		CompletionBonusXP:       req.CompletionBonusXP,
		CreatorRewardXP:         req.CreatorRewardXP,
		MinCompletionsForReward: req.MinCompletionsForReward,
		CorrelationID:           requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.CreateCourse.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.CourseKey(req.CourseID))
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	courseID := r.PathValue("id")

	var req struct {
		ContentLocator          *string `json:"content_locator,omitempty"`
		IsActive                *bool   `json:"is_active,omitempty"`
		CompletionBonusXP       *uint32 `json:"completion_bonus_xp,omitempty"`
		CreatorRewardXP         *uint32 `json:"creator_reward_xp,omitempty"`
		MinCompletionsForReward *uint16 `json:"min_completions_for_reward,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.UpdateCourseCommand{
		Actor:                   principal.ID,
		CourseID:                courseID,
		ContentLocator:          req.ContentLocator,
		IsActive:                req.IsActive,
		CompletionBonusXP:       req.CompletionBonusXP,
		CreatorRewardXP:         req.CreatorRewardXP,
		MinCompletionsForReward: req.MinCompletionsForReward,
		CorrelationID:           requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.UpdateCourse.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.CourseKey(courseID))
	writeJSON(w, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleInitLearner(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	// A learner initializes their own profile; the identity comes from the
	// token, never the body.
	cmd := command.InitLearnerCommand{
		LearnerID:     principal.ID,
		CorrelationID: requestID(r.Context()),
	}
	res, err := s.deps.InitLearner.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleRegisterReferral(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var req struct {
		ReferrerID string `json:"referrer_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.RegisterReferralCommand{
		LearnerID:     principal.ID,
		ReferrerID:    req.ReferrerID,
		CorrelationID: requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.RegisterReferral.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAwardStreakFreeze(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	release, ok := s.guardReplay(w, r)
	if !ok {
		return
	}

	cmd := command.AwardStreakFreezeCommand{
		Actor:         principal.ID,
		LearnerID:     r.PathValue("id"),
		CorrelationID: requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		release()
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.AwardStreakFreeze.Handle(r.Context(), cmd)
	if err != nil {
		release()
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.LearnerProgressKey(cmd.LearnerID))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClaimAchievement(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	release, ok := s.guardReplay(w, r)
	if !ok {
		return
	}

	var req struct {
		AchievementIndex uint8  `json:"achievement_index"`
		RequestedXP      uint32 `json:"requested_xp"`
	}
	if err := decode(r, &req); err != nil {
		release()
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.ClaimAchievementCommand{
		Actor:            principal.ID,
		LearnerID:        r.PathValue("id"),
		AchievementIndex: req.AchievementIndex,
		RequestedXP:      req.RequestedXP,
		CorrelationID:    requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		release()
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.ClaimAchievement.Handle(r.Context(), cmd)
	if err != nil {
		release()
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.LearnerProgressKey(cmd.LearnerID))
	writeJSON(w, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var req struct {
		CourseID string `json:"course_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.EnrollCommand{
		LearnerID:     principal.ID,
		CourseID:      req.CourseID,
		CorrelationID: requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.Enroll.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.LearnerProgressKey(principal.ID), redis.CourseKey(req.CourseID))
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleCloseEnrollment(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	courseID := r.PathValue("course")

	cmd := command.CloseEnrollmentCommand{
		LearnerID:     principal.ID,
		CourseID:      courseID,
		CorrelationID: requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.CloseEnrollment.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.LearnerProgressKey(principal.ID))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	release, ok := s.guardReplay(w, r)
	if !ok {
		return
	}

	var req struct {
		LearnerID   string `json:"learner_id"`
		CourseID    string `json:"course_id"`
		LessonIndex uint8  `json:"lesson_index"`
	}
	if err := decode(r, &req); err != nil {
		release()
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.CompleteLessonCommand{
		Actor:         principal.ID,
		LearnerID:     req.LearnerID,
		CourseID:      req.CourseID,
		LessonIndex:   req.LessonIndex,
		CorrelationID: requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		release()
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.CompleteLesson.Handle(r.Context(), cmd)
	if err != nil {
		release()
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.LearnerProgressKey(req.LearnerID))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFinalizeCourse(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	release, ok := s.guardReplay(w, r)
	if !ok {
		return
	}

	var req struct {
		LearnerID string `json:"learner_id"`
		CourseID  string `json:"course_id"`
	}
	if err := decode(r, &req); err != nil {
		release()
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.FinalizeCourseCommand{
		Actor:         principal.ID,
		LearnerID:     req.LearnerID,
		CourseID:      req.CourseID,
		CorrelationID: requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		release()
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.FinalizeCourse.Handle(r.Context(), cmd)
	if err != nil {
		release()
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.LearnerProgressKey(req.LearnerID), redis.CourseKey(req.CourseID))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClaimBonus(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var req struct {
		CourseID string `json:"course_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.ClaimCompletionBonusCommand{
		Actor:         principal.ID,
		LearnerID:     principal.ID,
		CourseID:      req.CourseID,
		CorrelationID: requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.ClaimBonus.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.invalidate(r, redis.LearnerProgressKey(principal.ID))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	release, ok := s.guardReplay(w, r)
	if !ok {
		return
	}

	var req struct {
		LearnerID   string `json:"learner_id"`
		CourseID    string `json:"course_id"`
		Name        string `json:"name"`
		MetadataURI string `json:"metadata_uri"`
	}
	if err := decode(r, &req); err != nil {
		release()
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.IssueCredentialCommand{
		Actor:         principal.ID,
		LearnerID:     req.LearnerID,
		CourseID:      req.CourseID,
		Name:          req.Name,
		MetadataURI:   req.MetadataURI,
		CorrelationID: requestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		release()
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.IssueCredential.Handle(r.Context(), cmd)
	if err != nil {
		release()
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetPlatformStatus(w http.ResponseWriter, r *http.Request) {
	var cached query.PlatformStatusResult
	if s.cacheGet(r, redis.PlatformStatusKey(), &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	res, err := s.deps.GetPlatformStatus.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.cacheSet(r, redis.PlatformStatusKey(), res, redis.TTLPlatformStatus)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")

	var cached query.CourseView
	if s.cacheGet(r, redis.CourseKey(courseID), &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	res, err := s.deps.GetCourse.Handle(r.Context(), query.GetCourseQuery{CourseID: courseID})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.cacheSet(r, redis.CourseKey(courseID), res, redis.TTLCourseView)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	q := query.ListCoursesQuery{
		Page:            queryInt(r, "page", 1),
		PageSize:        queryInt(r, "page_size", 20),
		IncludeInactive: queryBool(r, "include_inactive"),
	}
	if raw := queryInt(r, "track_id", -1); raw >= 0 {
		trackID := uint16(raw)
		q.TrackID = &trackID
	}

	res, err := s.deps.ListCourses.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetLearnerProgress(w http.ResponseWriter, r *http.Request) {
	q := query.GetLearnerProgressQuery{
		LearnerID:          r.PathValue("id"),
		IncludeEnrollments: queryBool(r, "include_enrollments"),
	}
	if err := q.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	// Only the compact view is cached; the enrollment list varies per course
	// catalog state.
	key := redis.LearnerProgressKey(q.LearnerID)
	if !q.IncludeEnrollments {
		var cached query.LearnerProgressResult
		if s.cacheGet(r, key, &cached) {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	res, err := s.deps.GetLearnerProgress.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !q.IncludeEnrollments {
		s.cacheSet(r, key, res, redis.TTLLearnerProgress)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetEnrollment(w http.ResponseWriter, r *http.Request) {
	q := query.GetEnrollmentQuery{
		LearnerID: r.PathValue("id"),
		CourseID:  r.PathValue("course"),
	}
	if err := q.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.deps.GetEnrollment.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStreakLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Leaderboard == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "leaderboard is not enabled")
		return
	}

	limit := queryInt(r, "limit", 10)
	if limit > 100 {
		limit = 100
	}

	ranks, err := s.deps.Leaderboard.Top(r.Context(), limit)
	if err != nil {
		s.log.Error("leaderboard read failed", logger.Err(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", "leaderboard is unavailable")
		return
	}
	writeJSON(w, http.StatusOK, ranks)
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) cacheGet(r *http.Request, key string, dest interface{}) bool {
	if s.deps.Cache == nil {
		return false
	}
	return s.deps.Cache.Get(r.Context(), key, dest) == nil
}

func (s *Server) cacheSet(r *http.Request, key string, value interface{}, ttl time.Duration) {
	if s.deps.Cache == nil {
		return
	}
	_ = s.deps.Cache.Set(r.Context(), key, value, ttl)
}

func (s *Server) invalidate(r *http.Request, keys ...string) {
	if s.deps.Cache == nil {
		return
	}
	_ = s.deps.Cache.Delete(r.Context(), keys...)
}
