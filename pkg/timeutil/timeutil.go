// Package timeutil provides UTC epoch-day utilities for the academy ledger.
// Daily XP budgets and streaks are accounted in UTC epoch days (unix/86400),
// not learner-local days, so every helper here works on unix timestamps.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// SecondsPerDay is the length of a ledger day.
const SecondsPerDay int64 = 86400

// DayIndex returns the UTC epoch-day number for a unix timestamp.
func DayIndex(unix int64) int64 {
	if unix < 0 {
		return 0
	}
	return unix / SecondsPerDay
}

// DayIndexOf returns the UTC epoch-day number for a time.Time.
func DayIndexOf(t time.Time) int64 {
	return DayIndex(t.Unix())
}

// SameDay reports whether two unix timestamps fall on the same ledger day.
func SameDay(a, b int64) bool {
	return DayIndex(a) == DayIndex(b)
}

// GapDays returns the number of fully missed ledger days between a past
// activity timestamp and now. Consecutive days yield 0; same or earlier day
// yields 0.
func GapDays(last, now int64) int64 {
	lastDay := DayIndex(last)
	nowDay := DayIndex(now)
	if nowDay <= lastDay {
		return 0
	}
	return nowDay - lastDay - 1
}

// StartOfDay returns the UTC midnight preceding t.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last nanosecond of the UTC day containing t.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

// NextDayStart returns the UTC midnight following t. Useful for computing
// when a learner's daily budget resets or a streak is at risk.
func NextDayStart(t time.Time) time.Time {
	return StartOfDay(t).Add(24 * time.Hour)
}

// SecondsUntilDayEnd returns how many seconds remain in the ledger day of
// the given unix timestamp.
func SecondsUntilDayEnd(unix int64) int64 {
	return (DayIndex(unix)+1)*SecondsPerDay - unix
}

// CooldownElapsed reports whether at least d has passed between two unix
// timestamps.
func CooldownElapsed(since, now int64, d time.Duration) bool {
	return now-since >= int64(d.Seconds())
}

// FormatDay renders a day index as a calendar date, for logs.
func FormatDay(dayIndex int64) string {
	return time.Unix(dayIndex*SecondsPerDay, 0).UTC().Format("2006-01-02")
}
