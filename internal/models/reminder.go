package models

import "time"

// Reminder is keyed by (OwnerID, DueTime). A second reminder for the same
// owner and due time replaces the first.
type Reminder struct {
	OwnerID   int64     `json:"owner_id"` // Telegram chat id
	DueTime   time.Time `json:"due_time"`
	Text      string    `json:"text"`
	Sent      bool      `json:"sent"`
	CreatedAt time.Time `json:"created_at"`
}

// IsDue reports whether the reminder should be delivered at now.
func (r *Reminder) IsDue(now time.Time) bool {
	return !r.Sent && !r.DueTime.After(now)
}

// NormalizeDueTime returns t in UTC at microsecond precision, the finest
// resolution every store backend keeps.
func NormalizeDueTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
