// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents a committed ledger state change.
const (
	// Learner events
	EventLearnerInitialized  EventType = "learner.initialized"
	EventReferralRegistered  EventType = "learner.referral_registered"
	EventAchievementClaimed  EventType = "learner.achievement_claimed"
	EventStreakBroken        EventType = "learner.streak_broken"
	EventStreakFreezesUsed   EventType = "learner.streak_freezes_used"
	EventStreakFreezeAwarded EventType = "learner.streak_freeze_awarded"
	EventStreakMilestone     EventType = "learner.streak_milestone"

	// Course events
	EventCourseCreated EventType = "course.created"
	EventCourseUpdated EventType = "course.updated"

	// Enrollment events
	EventEnrolled               EventType = "enrollment.enrolled"
	EventLessonCompleted        EventType = "enrollment.lesson_completed"
	EventCourseFinalized        EventType = "enrollment.course_finalized"
	EventCompletionBonusClaimed EventType = "enrollment.bonus_claimed"
	EventEnrollmentClosed       EventType = "enrollment.closed"

	// Credential events
	EventCredentialIssued EventType = "credential.issued"

	// Platform events
	EventSeasonCreated EventType = "platform.season_created"
	EventSeasonClosed  EventType = "platform.season_closed"
	EventConfigUpdated EventType = "platform.config_updated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Learner Events
// ═══════════════════════════════════════════════════════════════════════════

// LearnerInitializedEvent is emitted when a learner profile is created.
type LearnerInitializedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
}

// Payload implements Event interface.
func (e LearnerInitializedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
	}
}

// NewLearnerInitializedEvent creates a new LearnerInitializedEvent.
func NewLearnerInitializedEvent(learnerID string) LearnerInitializedEvent {
	return LearnerInitializedEvent{
		BaseEvent: NewBaseEvent(EventLearnerInitialized, learnerID),
		LearnerID: learnerID,
	}
}

// ReferralRegisteredEvent is emitted when a referral is recorded.
type ReferralRegisteredEvent struct {
	BaseEvent
	ReferrerID string `json:"referrer_id"`
	RefereeID  string `json:"referee_id"`
}

// Payload implements Event interface.
func (e ReferralRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"referrer_id": e.ReferrerID,
		"referee_id":  e.RefereeID,
	}
}

// NewReferralRegisteredEvent creates a new ReferralRegisteredEvent.
func NewReferralRegisteredEvent(referrerID, refereeID string) ReferralRegisteredEvent {
	return ReferralRegisteredEvent{
		BaseEvent:  NewBaseEvent(EventReferralRegistered, refereeID),
		ReferrerID: referrerID,
		RefereeID:  refereeID,
	}
}

// AchievementClaimedEvent is emitted when an achievement is claimed.
type AchievementClaimedEvent struct {
	BaseEvent
	LearnerID        string `json:"learner_id"`
	AchievementIndex uint8  `json:"achievement_index"`
	XPReward         uint32 `json:"xp_reward"`
}

// Payload implements Event interface.
func (e AchievementClaimedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":        e.LearnerID,
		"achievement_index": e.AchievementIndex,
		"xp_reward":         e.XPReward,
	}
}

// NewAchievementClaimedEvent creates a new AchievementClaimedEvent.
func NewAchievementClaimedEvent(learnerID string, index uint8, xpReward uint32) AchievementClaimedEvent {
	return AchievementClaimedEvent{
		BaseEvent:        NewBaseEvent(EventAchievementClaimed, learnerID),
		LearnerID:        learnerID,
		AchievementIndex: index,
		XPReward:         xpReward,
	}
}

// StreakBrokenEvent is emitted when a learner's daily streak is broken.
type StreakBrokenEvent struct {
	BaseEvent
	LearnerID   string `json:"learner_id"`
	FinalStreak uint16 `json:"final_streak"`
	DaysMissed  uint16 `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":   e.LearnerID,
		"final_streak": e.FinalStreak,
		"days_missed":  e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(learnerID string, finalStreak, daysMissed uint16) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:   NewBaseEvent(EventStreakBroken, learnerID),
		LearnerID:   learnerID,
		FinalStreak: finalStreak,
		DaysMissed:  daysMissed,
	}
}

// StreakFreezesUsedEvent is emitted when freezes cover missed days.
type StreakFreezesUsedEvent struct {
	BaseEvent
	LearnerID        string `json:"learner_id"`
	FreezesUsed      uint8  `json:"freezes_used"`
	FreezesRemaining uint8  `json:"freezes_remaining"`
}

// Payload implements Event interface.
func (e StreakFreezesUsedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":        e.LearnerID,
		"freezes_used":      e.FreezesUsed,
		"freezes_remaining": e.FreezesRemaining,
	}
}

// NewStreakFreezesUsedEvent creates a new StreakFreezesUsedEvent.
func NewStreakFreezesUsedEvent(learnerID string, used, remaining uint8) StreakFreezesUsedEvent {
	return StreakFreezesUsedEvent{
		BaseEvent:        NewBaseEvent(EventStreakFreezesUsed, learnerID),
		LearnerID:        learnerID,
		FreezesUsed:      used,
		FreezesRemaining: remaining,
	}
}

// StreakFreezeAwardedEvent is emitted when a freeze is granted to a learner.
type StreakFreezeAwardedEvent struct {
	BaseEvent
	LearnerID        string `json:"learner_id"`
	FreezesRemaining uint8  `json:"freezes_remaining"`
}

// Payload implements Event interface.
func (e StreakFreezeAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":        e.LearnerID,
		"freezes_remaining": e.FreezesRemaining,
	}
}

// NewStreakFreezeAwardedEvent creates a new StreakFreezeAwardedEvent.
func NewStreakFreezeAwardedEvent(learnerID string, remaining uint8) StreakFreezeAwardedEvent {
	return StreakFreezeAwardedEvent{
		BaseEvent:        NewBaseEvent(EventStreakFreezeAwarded, learnerID),
		LearnerID:        learnerID,
		FreezesRemaining: remaining,
	}
}

// StreakMilestoneEvent is emitted when a streak reaches a milestone length.
type StreakMilestoneEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	Milestone uint16 `json:"milestone"`
}

// Payload implements Event interface.
func (e StreakMilestoneEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"milestone":  e.Milestone,
	}
}

// NewStreakMilestoneEvent creates a new StreakMilestoneEvent.
func NewStreakMilestoneEvent(learnerID string, milestone uint16) StreakMilestoneEvent {
	return StreakMilestoneEvent{
		BaseEvent: NewBaseEvent(EventStreakMilestone, learnerID),
		LearnerID: learnerID,
		Milestone: milestone,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Course Events
// ═══════════════════════════════════════════════════════════════════════════

// CourseCreatedEvent is emitted when a course is registered.
type CourseCreatedEvent struct {
	BaseEvent
	CourseID   string `json:"course_id"`
	CreatorID  string `json:"creator_id"`
	TrackID    uint16 `json:"track_id"`
	TrackLevel uint8  `json:"track_level"`
}

// Payload implements Event interface.
func (e CourseCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id":   e.CourseID,
		"creator_id":  e.CreatorID,
		"track_id":    e.TrackID,
		"track_level": e.TrackLevel,
	}
}

// NewCourseCreatedEvent creates a new CourseCreatedEvent.
func NewCourseCreatedEvent(courseID, creatorID string, trackID uint16, trackLevel uint8) CourseCreatedEvent {
	return CourseCreatedEvent{
		BaseEvent:  NewBaseEvent(EventCourseCreated, courseID),
		CourseID:   courseID,
		CreatorID:  creatorID,
		TrackID:    trackID,
		TrackLevel: trackLevel,
	}
}

// CourseUpdatedEvent is emitted when course metadata changes.
type CourseUpdatedEvent struct {
	BaseEvent
	CourseID string `json:"course_id"`
	Version  uint16 `json:"version"`
}

// Payload implements Event interface.
func (e CourseUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id": e.CourseID,
		"version":   e.Version,
	}
}

// NewCourseUpdatedEvent creates a new CourseUpdatedEvent.
func NewCourseUpdatedEvent(courseID string, version uint16) CourseUpdatedEvent {
	return CourseUpdatedEvent{
		BaseEvent: NewBaseEvent(EventCourseUpdated, courseID),
		CourseID:  courseID,
		Version:   version,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// EnrolledEvent is emitted when a learner enrolls in a course.
type EnrolledEvent struct {
	BaseEvent
	LearnerID     string `json:"learner_id"`
	CourseID      string `json:"course_id"`
	CourseVersion uint16 `json:"course_version"`
}

// Payload implements Event interface.
func (e EnrolledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":     e.LearnerID,
		"course_id":      e.CourseID,
		"course_version": e.CourseVersion,
	}
}

// NewEnrolledEvent creates a new EnrolledEvent.
func NewEnrolledEvent(learnerID, courseID string, courseVersion uint16) EnrolledEvent {
	return EnrolledEvent{
		BaseEvent:     NewBaseEvent(EventEnrolled, learnerID),
		LearnerID:     learnerID,
		CourseID:      courseID,
		CourseVersion: courseVersion,
	}
}

// LessonCompletedEvent is emitted when a lesson is completed and XP awarded.
type LessonCompletedEvent struct {
	BaseEvent
	LearnerID     string `json:"learner_id"`
	CourseID      string `json:"course_id"`
	LessonIndex   uint8  `json:"lesson_index"`
	XPEarned      uint32 `json:"xp_earned"`
	CurrentStreak uint16 `json:"current_streak"`
}

// Payload implements Event interface.
func (e LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":     e.LearnerID,
		"course_id":      e.CourseID,
		"lesson_index":   e.LessonIndex,
		"xp_earned":      e.XPEarned,
		"current_streak": e.CurrentStreak,
	}
}

// NewLessonCompletedEvent creates a new LessonCompletedEvent.
func NewLessonCompletedEvent(learnerID, courseID string, lessonIndex uint8, xpEarned uint32, currentStreak uint16) LessonCompletedEvent {
	return LessonCompletedEvent{
		BaseEvent:     NewBaseEvent(EventLessonCompleted, learnerID),
		LearnerID:     learnerID,
		CourseID:      courseID,
		LessonIndex:   lessonIndex,
		XPEarned:      xpEarned,
		CurrentStreak: currentStreak,
	}
}

// CourseFinalizedEvent is emitted when a learner finalizes a completed course.
type CourseFinalizedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	CourseID  string `json:"course_id"`
	TotalXP   uint32 `json:"total_xp"`
	CreatorID string `json:"creator_id"`
	CreatorXP uint32 `json:"creator_xp"`
}

// Payload implements Event interface.
func (e CourseFinalizedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"course_id":  e.CourseID,
		"total_xp":   e.TotalXP,
		"creator_id": e.CreatorID,
		"creator_xp": e.CreatorXP,
	}
}

// NewCourseFinalizedEvent creates a new CourseFinalizedEvent.
func NewCourseFinalizedEvent(learnerID, courseID string, totalXP uint32, creatorID string, creatorXP uint32) CourseFinalizedEvent {
	return CourseFinalizedEvent{
		BaseEvent: NewBaseEvent(EventCourseFinalized, learnerID),
		LearnerID: learnerID,
		CourseID:  courseID,
		TotalXP:   totalXP,
		CreatorID: creatorID,
		CreatorXP: creatorXP,
	}
}

// CompletionBonusClaimedEvent is emitted when a completion bonus is claimed.
type CompletionBonusClaimedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	CourseID  string `json:"course_id"`
	BonusXP   uint32 `json:"bonus_xp"`
}

// Payload implements Event interface.
func (e CompletionBonusClaimedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"course_id":  e.CourseID,
		"bonus_xp":   e.BonusXP,
	}
}

// NewCompletionBonusClaimedEvent creates a new CompletionBonusClaimedEvent.
func NewCompletionBonusClaimedEvent(learnerID, courseID string, bonusXP uint32) CompletionBonusClaimedEvent {
	return CompletionBonusClaimedEvent{
		BaseEvent: NewBaseEvent(EventCompletionBonusClaimed, learnerID),
		LearnerID: learnerID,
		CourseID:  courseID,
		BonusXP:   bonusXP,
	}
}

// EnrollmentClosedEvent is emitted when an enrollment record is closed.
type EnrollmentClosedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	CourseID  string `json:"course_id"`
	Completed bool   `json:"completed"`
}

// Payload implements Event interface.
func (e EnrollmentClosedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"course_id":  e.CourseID,
		"completed":  e.Completed,
	}
}

// NewEnrollmentClosedEvent creates a new EnrollmentClosedEvent.
func NewEnrollmentClosedEvent(learnerID, courseID string, completed bool) EnrollmentClosedEvent {
	return EnrollmentClosedEvent{
		BaseEvent: NewBaseEvent(EventEnrollmentClosed, learnerID),
		LearnerID: learnerID,
		CourseID:  courseID,
		Completed: completed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Credential Events
// ═══════════════════════════════════════════════════════════════════════════

// CredentialIssuedEvent is emitted when a track credential is created or upgraded.
type CredentialIssuedEvent struct {
	BaseEvent
	LearnerID    string `json:"learner_id"`
	TrackID      uint16 `json:"track_id"`
	CredentialID string `json:"credential_id"`
	Created      bool   `json:"created"`
	Upgraded     bool   `json:"upgraded"`
	CurrentLevel uint8  `json:"current_level"`
}

// Payload implements Event interface.
func (e CredentialIssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":    e.LearnerID,
		"track_id":      e.TrackID,
		"credential_id": e.CredentialID,
		"created":       e.Created,
		"upgraded":      e.Upgraded,
		"current_level": e.CurrentLevel,
	}
}

// NewCredentialIssuedEvent creates a new CredentialIssuedEvent.
func NewCredentialIssuedEvent(learnerID string, trackID uint16, credentialID string, created, upgraded bool, level uint8) CredentialIssuedEvent {
	return CredentialIssuedEvent{
		BaseEvent:    NewBaseEvent(EventCredentialIssued, learnerID),
		LearnerID:    learnerID,
		TrackID:      trackID,
		CredentialID: credentialID,
		Created:      created,
		Upgraded:     upgraded,
		CurrentLevel: level,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Platform Events
// ═══════════════════════════════════════════════════════════════════════════

// SeasonCreatedEvent is emitted when a new season opens.
type SeasonCreatedEvent struct {
	BaseEvent
	Season uint16 `json:"season"`
	MintID string `json:"mint_id"`
}

// Payload implements Event interface.
func (e SeasonCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"season":  e.Season,
		"mint_id": e.MintID,
	}
}

// NewSeasonCreatedEvent creates a new SeasonCreatedEvent.
func NewSeasonCreatedEvent(season uint16, mintID string) SeasonCreatedEvent {
	return SeasonCreatedEvent{
		BaseEvent: NewBaseEvent(EventSeasonCreated, "platform"),
		Season:    season,
		MintID:    mintID,
	}
}

// SeasonClosedEvent is emitted when the current season closes.
type SeasonClosedEvent struct {
	BaseEvent
	Season uint16 `json:"season"`
}

// Payload implements Event interface.
func (e SeasonClosedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"season": e.Season,
	}
}

// NewSeasonClosedEvent creates a new SeasonClosedEvent.
func NewSeasonClosedEvent(season uint16) SeasonClosedEvent {
	return SeasonClosedEvent{
		BaseEvent: NewBaseEvent(EventSeasonClosed, "platform"),
		Season:    season,
	}
}

// ConfigUpdatedEvent is emitted when platform config fields change.
type ConfigUpdatedEvent struct {
	BaseEvent
	Fields []string `json:"fields"`
}

// Payload implements Event interface.
func (e ConfigUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"fields": e.Fields,
	}
}

// NewConfigUpdatedEvent creates a new ConfigUpdatedEvent.
func NewConfigUpdatedEvent(fields []string) ConfigUpdatedEvent {
	return ConfigUpdatedEvent{
		BaseEvent: NewBaseEvent(EventConfigUpdated, "platform"),
		Fields:    fields,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
