package models

import (
	"fmt"
	"time"
)

type ModifierKind string

const (
	ModifierDelay     ModifierKind = "delay"
	ModifierWeekday   ModifierKind = "weekday"
	ModifierTimeOfDay ModifierKind = "time_of_day"
	ModifierDate      ModifierKind = "date"
	ModifierMonths    ModifierKind = "months"
)

// TimeModifier is one unit of a time expression. Exactly the fields for its
// Kind are meaningful; the rest stay zero. The JSON shape is the snapshot
// schema for reminder intervals.
type TimeModifier struct {
	Kind ModifierKind `json:"kind"`

	DelayMs int64 `json:"delay_ms,omitempty"`

	// Weekday ordinal, 0 = Monday .. 6 = Sunday.
	Weekday int `json:"weekday,omitempty"`

	Hour   int `json:"hour,omitempty"`
	Minute int `json:"minute,omitempty"`

	// Date fields; Year and Month of 0 inherit from the base timestamp.
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`

	Months int `json:"months,omitempty"`
}

// Apply transforms base according to the modifier, staying in base's location.
func (m TimeModifier) Apply(base time.Time) (time.Time, error) {
	switch m.Kind {
	case ModifierDelay:
		return base.Add(time.Duration(m.DelayMs) * time.Millisecond), nil
	case ModifierTimeOfDay:
		return time.Date(base.Year(), base.Month(), base.Day(), m.Hour, m.Minute, 0, 0, base.Location()), nil
	case ModifierDate:
		year, month, day := m.Year, m.Month, m.Day
		if year == 0 {
			year = base.Year()
		}
		if month == 0 {
			month = int(base.Month())
		}
		result := time.Date(year, time.Month(month), day,
			base.Hour(), base.Minute(), base.Second(), 0, base.Location())
		// time.Date normalizes out-of-range civil dates (Feb 30 -> Mar 2);
		// reject anything that did not survive round-tripping.
		if result.Year() != year || result.Month() != time.Month(month) || result.Day() != day {
			return time.Time{}, fmt.Errorf("invalid date %d-%d-%d", year, month, day)
		}
		return result, nil
	case ModifierWeekday:
		// Strictly after base: a base already on the target weekday
		// advances a full week.
		days := (m.Weekday - mondayOrdinal(base.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return base.AddDate(0, 0, days), nil
	case ModifierMonths:
		return addMonthsClamped(base, m.Months), nil
	default:
		return time.Time{}, fmt.Errorf("unknown time modifier kind %q", m.Kind)
	}
}

// ApplyAll runs a modifier sequence left to right, each step seeing the
// previous step's result.
func ApplyAll(modifiers []TimeModifier, base time.Time) (time.Time, error) {
	result := base
	for _, m := range modifiers {
		var err error
		result, err = m.Apply(result)
		if err != nil {
			return time.Time{}, err
		}
	}
	return result, nil
}

// mondayOrdinal converts Go's Sunday-based weekday to the 0=Monday ordering
// used by the grammar.
func mondayOrdinal(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// addMonthsClamped performs calendar-month addition, clamping the day of month
// to the last day of the target month (Jan 31 + 1mo = Feb 28/29). AddDate is
// unsuitable here because it normalizes overflow into the following month.
func addMonthsClamped(base time.Time, months int) time.Time {
	year := base.Year()
	month := int(base.Month()) - 1 + months
	year += month / 12
	month = month % 12
	if month < 0 {
		month += 12
		year--
	}
	day := base.Day()
	if last := daysIn(year, time.Month(month+1)); day > last {
		day = last
	}
	return time.Date(year, time.Month(month+1), day,
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
