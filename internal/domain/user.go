package domain

import "time"

// Status is where a user currently is in the daily journaling cycle.
type Status string

const (
	// StatusIdle means no session is in progress; the next reminder or
	// /done starts a new cycle.
	StatusIdle Status = "IDLE"
	// StatusAwaitingGratitude means the bot is collecting gratitude entries.
	StatusAwaitingGratitude Status = "AWAITING_GRATITUDE"
	// StatusAwaitingMistakes means the bot is collecting mistake entries.
	StatusAwaitingMistakes Status = "AWAITING_MISTAKES"
)

// Valid reports whether s is one of the three persisted statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusAwaitingGratitude, StatusAwaitingMistakes:
		return true
	}
	return false
}

// Advance moves one step forward in the daily cycle:
// IDLE → AWAITING_GRATITUDE → AWAITING_MISTAKES → IDLE.
func (s Status) Advance() Status {
	switch s {
	case StatusIdle:
		return StatusAwaitingGratitude
	case StatusAwaitingGratitude:
		return StatusAwaitingMistakes
	default:
		return StatusIdle
	}
}

// UserRecord holds per-user session state and reminder settings.
type UserRecord struct {
	UserID     int64     // Telegram user id, immutable
	Status     Status    //
	TriggerSec int       // reminder time as UTC seconds since midnight, [0, DaySeconds)
	TZ         string    // IANA timezone identifier
	Version    int64     // optimistic concurrency counter, managed by the store
	CreatedAt  time.Time //
}
