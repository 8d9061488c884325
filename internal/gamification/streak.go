package gamification

import (
	"time"
)

// StreakState is the single owned copy of a user's streak.
type StreakState struct {
	Current        int
	Longest        int
	LastActivityAt *time.Time
}

// StreakTransition names what a touch did to the streak.
type StreakTransition int

const (
	StreakFirstActivity StreakTransition = iota
	StreakSameDay
	StreakConsecutiveDay
	StreakReset
)

func (t StreakTransition) String() string {
	switch t {
	case StreakFirstActivity:
		return "first_activity"
	case StreakSameDay:
		return "same_day"
	case StreakConsecutiveDay:
		return "consecutive_day"
	case StreakReset:
		return "reset"
	default:
		return "unknown"
	}
}

// DaysBetween counts calendar days in loc from earlier to later.
// It compares dates, not durations, so DST changes do not shift it.
func DaysBetween(earlier, later time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	ey, em, ed := earlier.In(loc).Date()
	ly, lm, ld := later.In(loc).Date()
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	l := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
	return int(l.Sub(e).Hours() / 24)
}

// AdvanceStreak applies an activity at now to s. A same-day touch returns s
// unchanged; every other transition stores now at full precision.
func AdvanceStreak(s StreakState, now time.Time, loc *time.Location) (StreakState, StreakTransition) {
	if s.LastActivityAt == nil {
		next := StreakState{Current: 1, Longest: max(s.Longest, 1), LastActivityAt: &now}
		return next, StreakFirstActivity
	}

	days := DaysBetween(*s.LastActivityAt, now, loc)
	switch {
	case days <= 0:
		// now before the stored activity also lands here.
		return s, StreakSameDay
	case days == 1:
		current := s.Current + 1
		return StreakState{Current: current, Longest: max(s.Longest, current), LastActivityAt: &now}, StreakConsecutiveDay
	default:
		return StreakState{Current: 1, Longest: max(s.Longest, 1), LastActivityAt: &now}, StreakReset
	}
}
