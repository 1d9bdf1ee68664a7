// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrCooldown         = errors.New("cooldown not met")

	// Arithmetic errors
	ErrOverflow = errors.New("arithmetic overflow")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "learner", "course", "enrollment"
	Op      string // Operation that failed, e.g., "Enroll", "CompleteLesson"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e == target {
		return true
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Platform domain errors
var (
	ErrPlatformNotInitialized     = NewDomainError("platform", "Find", ErrNotFound, "platform config not initialized")
	ErrPlatformAlreadyInitialized = NewDomainError("platform", "Initialize", ErrAlreadyExists, "platform already initialized")
	ErrSeasonNotActive            = NewDomainError("platform", "CheckSeason", ErrInvalidState, "season not active")
	ErrSeasonClosed               = NewDomainError("platform", "CheckSeason", ErrInvalidState, "season already closed")
	ErrSeasonNotClosed            = NewDomainError("platform", "CreateSeason", ErrInvalidState, "prior season not closed")
	ErrInvalidSeasonNumber        = NewDomainError("platform", "CreateSeason", ErrValueOutOfRange, "season numbers must be sequential")
	ErrInvalidConfigValue         = NewDomainError("platform", "Validate", ErrValueOutOfRange, "invalid config value")
)

// Learner domain errors
var (
	ErrLearnerNotFound           = NewDomainError("learner", "Find", ErrNotFound, "learner not found")
	ErrLearnerAlreadyInitialized = NewDomainError("learner", "Initialize", ErrAlreadyExists, "learner already initialized")
	ErrDailyXPLimitExceeded      = NewDomainError("learner", "AwardXP", ErrRateLimited, "daily XP limit exceeded")
	ErrSelfReferral              = NewDomainError("learner", "Refer", ErrInvalidInput, "cannot refer yourself")
	ErrAlreadyReferred           = NewDomainError("learner", "Refer", ErrAlreadyExists, "already has a referrer")
	ErrReferrerNotFound          = NewDomainError("learner", "Refer", ErrNotFound, "referrer not found")
	ErrNotEnoughFreezes          = NewDomainError("learner", "AwardFreeze", ErrValueOutOfRange, "streak freeze limit reached")
	ErrAchievementOutOfBounds    = NewDomainError("learner", "ClaimAchievement", ErrValueOutOfRange, "achievement index out of bounds")
	ErrAchievementAlreadyClaimed = NewDomainError("learner", "ClaimAchievement", ErrAlreadyProcessed, "achievement already claimed")
)

// Course domain errors
var (
	ErrCourseNotFound      = NewDomainError("course", "Find", ErrNotFound, "course not found")
	ErrCourseAlreadyExists = NewDomainError("course", "Create", ErrAlreadyExists, "course already exists")
	ErrCourseNotActive     = NewDomainError("course", "CheckStatus", ErrInvalidState, "course not active")
	ErrInvalidCourseID     = NewDomainError("course", "Validate", ErrInvalidID, "invalid course ID")
	ErrCourseIDTooLong     = NewDomainError("course", "Validate", ErrInvalidID, "course ID too long (max 32 chars)")
	ErrInvalidLessonCount  = NewDomainError("course", "Validate", ErrValueOutOfRange, "lesson count out of range")
	ErrInvalidDifficulty   = NewDomainError("course", "Validate", ErrValueOutOfRange, "invalid difficulty level")
	ErrInvalidTrackLevel   = NewDomainError("course", "Validate", ErrValueOutOfRange, "invalid track level")
)

// Enrollment domain errors
var (
	ErrNotEnrolled              = NewDomainError("enrollment", "Find", ErrNotFound, "not enrolled")
	ErrAlreadyEnrolled          = NewDomainError("enrollment", "Enroll", ErrAlreadyExists, "already enrolled")
	ErrLessonOutOfBounds        = NewDomainError("enrollment", "CompleteLesson", ErrValueOutOfRange, "lesson index out of bounds")
	ErrLessonAlreadyCompleted   = NewDomainError("enrollment", "CompleteLesson", ErrAlreadyProcessed, "lesson already completed")
	ErrCourseNotCompleted       = NewDomainError("enrollment", "Finalize", ErrInvalidState, "not all lessons completed")
	ErrCourseAlreadyFinalized   = NewDomainError("enrollment", "Finalize", ErrAlreadyProcessed, "course already finalized")
	ErrCourseNotFinalized       = NewDomainError("enrollment", "ClaimBonus", ErrInvalidState, "course not finalized")
	ErrBonusAlreadyClaimed      = NewDomainError("enrollment", "ClaimBonus", ErrAlreadyProcessed, "completion bonus already claimed")
	ErrUnenrollCooldown         = NewDomainError("enrollment", "Close", ErrCooldown, "close cooldown not met (24h)")
	ErrEnrollmentCourseMismatch = NewDomainError("enrollment", "Validate", ErrInvalidInput, "enrollment/course mismatch")
	ErrPrerequisiteNotMet       = NewDomainError("enrollment", "Enroll", ErrForbidden, "prerequisite not met")
)

// Credential domain errors
var (
	ErrCredentialMintFailed = NewDomainError("issuing", "IssueCredential", ErrExternalService, "credential issuance failed")
	ErrRewardMintFailed     = NewDomainError("issuing", "MintXP", ErrExternalService, "XP reward issuance failed")
	ErrSeasonMintMismatch   = NewDomainError("issuing", "MintXP", ErrInvalidState, "reward mint does not match active season")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict checks if the error represents a state conflict that the caller
// caused (double submit, stale state) rather than a server fault.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrAlreadyProcessed) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrCooldown)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
