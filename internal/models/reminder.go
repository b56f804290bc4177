package models

import "time"

// Reminder is a scheduled message for one user. Its identity is positional:
// the id users address it by is its current index in the user's list, which
// stays sorted ascending by TriggerTime.
type Reminder struct {
	TriggerTime time.Time      `json:"time"`
	Message     string         `json:"message"`
	Interval    []TimeModifier `json:"interval,omitempty"`
}

// NextOccurrence applies the reminder's interval to its trigger time to
// produce the successor trigger time. ok is false when there is no interval.
func (r Reminder) NextOccurrence() (time.Time, bool, error) {
	if len(r.Interval) == 0 {
		return time.Time{}, false, nil
	}
	next, err := ApplyAll(r.Interval, r.TriggerTime)
	if err != nil {
		return time.Time{}, true, err
	}
	return next, true, nil
}

// UserReminder pairs a reminder with its owner for snapshotting.
type UserReminder struct {
	UserID   int64    `json:"user"`
	Reminder Reminder `json:"reminder"`
}
