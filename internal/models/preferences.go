package models

import "time"

type TimeFormat string

const (
	TimeFormat12h TimeFormat = "12h"
	TimeFormat24h TimeFormat = "24h"
)

const DefaultTimezone = "America/New_York"

// Preferences holds a user's display settings. Users without an explicit
// record get DefaultPreferences.
type Preferences struct {
	Timezone   string     `json:"timezone"`
	TimeFormat TimeFormat `json:"time_format"`
}

func DefaultPreferences(timezone string) Preferences {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	return Preferences{Timezone: timezone, TimeFormat: TimeFormat12h}
}

// Location resolves the preferred timezone, falling back to the system
// location when the stored name no longer resolves.
func (p Preferences) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// FormatTime renders a trigger time for display in the preferred format.
func (p Preferences) FormatTime(t time.Time) string {
	t = t.In(p.Location())
	if p.TimeFormat == TimeFormat24h {
		return t.Format("Monday, January 2, 2006 at 15:04 MST")
	}
	return t.Format("Monday, January 2, 2006 at 3:04pm MST")
}
