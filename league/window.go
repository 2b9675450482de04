package league

import (
	"cmp"
	"slices"
	"time"
)

// Window is where a match currently sits relative to its reminder window.
type Window int

const (
	// WindowPending: more than the configured lead time remains.
	WindowPending Window = iota
	// WindowDue: inside the one-hour send window.
	WindowDue
	// WindowMissed: less than lead-1 hours remain and the match has not started.
	WindowMissed
	// WindowStarted: kickoff is now or in the past.
	WindowStarted
)

func (w Window) String() string {
	switch w {
	case WindowPending:
		return "pending"
	case WindowDue:
		return "due"
	case WindowMissed:
		return "missed"
	case WindowStarted:
		return "started"
	}
	return "unknown"
}

// Policy decides reminder timing. A match is due while
// (NotificationHours-1) < hoursUntil <= NotificationHours.
type Policy struct {
	NotificationHours int
}

func (p Policy) lead() time.Duration {
	return time.Duration(p.NotificationHours) * time.Hour
}

// HoursUntil is the fractional number of hours until kickoff (negative once started).
func HoursUntil(m Match, now time.Time) float64 {
	return m.ScheduledAt.Sub(now).Hours()
}

// IsUpcoming reports whether kickoff is strictly after now.
func IsUpcoming(m Match, now time.Time) bool {
	return m.ScheduledAt.After(now)
}

// IsFinished reports whether both scores are present and kickoff is not in the future.
func IsFinished(m Match, now time.Time) bool {
	return m.HasScore() && !m.ScheduledAt.After(now)
}

// IsDue reports whether the match is inside the send window at now.
func (p Policy) IsDue(m Match, now time.Time) bool {
	return p.Classify(m, now) == WindowDue
}

// Classify compares durations rather than float hours so the window edges are exact.
func (p Policy) Classify(m Match, now time.Time) Window {
	until := m.ScheduledAt.Sub(now)
	switch {
	case until <= 0:
		return WindowStarted
	case until > p.lead():
		return WindowPending
	case until > p.lead()-time.Hour:
		return WindowDue
	default:
		return WindowMissed
	}
}

// SortUpcoming orders games by kickoff, earliest first.
func SortUpcoming(games []Game) {
	slices.SortStableFunc(games, func(a, b Game) int {
		return cmp.Or(a.ScheduledAt.Compare(b.ScheduledAt), cmp.Compare(a.ID, b.ID))
	})
}

// SortFinished orders games by kickoff, latest first.
func SortFinished(games []Game) {
	slices.SortStableFunc(games, func(a, b Game) int {
		return cmp.Or(b.ScheduledAt.Compare(a.ScheduledAt), cmp.Compare(b.ID, a.ID))
	})
}
