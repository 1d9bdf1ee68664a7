// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/hex"
	"math"
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// LearnerID represents a unique learner identifier (UUID format).
type LearnerID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the learner ID is a valid UUID.
func (l LearnerID) IsValid() bool {
	return uuidRegex.MatchString(string(l))
}

// String returns the string representation.
func (l LearnerID) String() string {
	return string(l)
}

// IsEmpty checks if the ID is empty.
func (l LearnerID) IsEmpty() bool {
	return l == ""
}

// NewLearnerID creates a new LearnerID with validation.
func NewLearnerID(id string) (LearnerID, error) {
	lid := LearnerID(strings.ToLower(strings.TrimSpace(id)))
	if !lid.IsValid() {
		return "", NewDomainError("shared", "NewLearnerID", ErrInvalidID, "invalid learner ID format")
	}
	return lid, nil
}

// CourseID represents a unique course identifier. Identity key, immutable
// once a course is created.
type CourseID string

// MaxCourseIDLength is the maximum byte length of a course ID.
const MaxCourseIDLength = 32

// Course ID format: lowercase slug (e.g., "solana-101", "rust-advanced").
var courseIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// IsValid checks if the course ID format is valid.
func (c CourseID) IsValid() bool {
	s := string(c)
	return len(s) > 0 && len(s) <= MaxCourseIDLength && courseIDRegex.MatchString(s)
}

// String returns the string representation.
func (c CourseID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c CourseID) IsEmpty() bool {
	return c == ""
}

// NewCourseID creates a new CourseID with validation.
func NewCourseID(id string) (CourseID, error) {
	cid := CourseID(strings.ToLower(strings.TrimSpace(id)))
	if len(cid) > MaxCourseIDLength {
		return "", ErrCourseIDTooLong
	}
	if !cid.IsValid() {
		return "", ErrInvalidCourseID
	}
	return cid, nil
}

// MintID is an opaque reference to a season's reward currency. The ledger
// never interprets it; it only compares it against the active season's mint.
type MintID string

// String returns the string representation.
func (m MintID) String() string {
	return string(m)
}

// IsEmpty checks if the mint reference is unset.
func (m MintID) IsEmpty() bool {
	return m == ""
}

// ═══════════════════════════════════════════════════════════════════════════
// Course Parameter Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Difficulty represents a course difficulty level (1-3).
type Difficulty uint8

const (
	DifficultyBeginner     Difficulty = 1
	DifficultyIntermediate Difficulty = 2
	DifficultyAdvanced     Difficulty = 3
)

// IsValid checks if the difficulty is within the allowed domain.
func (d Difficulty) IsValid() bool {
	return d >= DifficultyBeginner && d <= DifficultyAdvanced
}

// String returns a human-readable difficulty label.
func (d Difficulty) String() string {
	switch d {
	case DifficultyBeginner:
		return "beginner"
	case DifficultyIntermediate:
		return "intermediate"
	case DifficultyAdvanced:
		return "advanced"
	default:
		return "unknown"
	}
}

// NewDifficulty creates a new Difficulty with validation.
func NewDifficulty(v uint8) (Difficulty, error) {
	d := Difficulty(v)
	if !d.IsValid() {
		return 0, ErrInvalidDifficulty
	}
	return d, nil
}

// TrackLevel represents a credential level within a track (1-3).
type TrackLevel uint8

const (
	TrackLevelBeginner     TrackLevel = 1
	TrackLevelIntermediate TrackLevel = 2
	TrackLevelAdvanced     TrackLevel = 3
)

// IsValid checks if the track level is within the allowed domain.
func (t TrackLevel) IsValid() bool {
	return t >= TrackLevelBeginner && t <= TrackLevelAdvanced
}

// String returns a human-readable level label, used on credentials.
func (t TrackLevel) String() string {
	switch t {
	case TrackLevelBeginner:
		return "Beginner"
	case TrackLevelIntermediate:
		return "Intermediate"
	case TrackLevelAdvanced:
		return "Advanced"
	default:
		return "Unknown"
	}
}

// NewTrackLevel creates a new TrackLevel with validation.
func NewTrackLevel(v uint8) (TrackLevel, error) {
	t := TrackLevel(v)
	if !t.IsValid() {
		return 0, ErrInvalidTrackLevel
	}
	return t, nil
}

// ContentLocator is a 32-byte opaque reference to off-system course content.
type ContentLocator [32]byte

// IsZero checks if the locator is unset.
func (c ContentLocator) IsZero() bool {
	return c == ContentLocator{}
}

// String returns the hex representation.
func (c ContentLocator) String() string {
	return hex.EncodeToString(c[:])
}

// NewContentLocator parses a hex-encoded 32-byte content locator.
func NewContentLocator(s string) (ContentLocator, error) {
	var loc ContentLocator
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil || len(raw) != len(loc) {
		return loc, NewDomainError("shared", "NewContentLocator", ErrInvalidFormat, "content locator must be 32 hex-encoded bytes")
	}
	copy(loc[:], raw)
	return loc, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Checked Arithmetic
// ═══════════════════════════════════════════════════════════════════════════

// Counters never wrap. Every increment is a fallible operation surfacing
// ErrOverflow, matching the error taxonomy's Arithmetic kind.

// CheckedAddU32 adds two uint32 values, failing on overflow.
func CheckedAddU32(a, b uint32) (uint32, error) {
	if b > math.MaxUint32-a {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// CheckedAddU8 adds two uint8 values, failing on overflow.
func CheckedAddU8(a, b uint8) (uint8, error) {
	if b > math.MaxUint8-a {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// CheckedAddU16 adds two uint16 values, failing on overflow.
func CheckedAddU16(a, b uint16) (uint16, error) {
	if b > math.MaxUint16-a {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// CheckedIncU16 increments a uint16 counter, failing on overflow.
func CheckedIncU16(a uint16) (uint16, error) {
	return CheckedAddU16(a, 1)
}

// CheckedIncU32 increments a uint32 counter, failing on overflow.
func CheckedIncU32(a uint32) (uint32, error) {
	return CheckedAddU32(a, 1)
}

// MinU32 returns the smaller of two uint32 values.
func MinU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters for list queries.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}
