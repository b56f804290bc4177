package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestDelayApply(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := TimeModifier{Kind: ModifierDelay, DelayMs: 90 * 60 * 1000}

	result, err := m.Apply(base)
	require.NoError(t, err)
	require.Equal(t, base.Add(90*time.Minute), result)
}

func TestTimeOfDayApply(t *testing.T) {
	loc := newYork(t)
	base := time.Date(2024, 5, 1, 10, 42, 33, 123, loc)
	m := TimeModifier{Kind: ModifierTimeOfDay, Hour: 15, Minute: 30}

	result, err := m.Apply(base)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 1, 15, 30, 0, 0, loc), result)
	require.Equal(t, loc, result.Location())
}

func TestDateApply_DefaultsYearAndMonthFromBase(t *testing.T) {
	loc := newYork(t)
	base := time.Date(2024, 5, 1, 9, 15, 30, 0, loc)

	result, err := TimeModifier{Kind: ModifierDate, Day: 20}.Apply(base)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 20, 9, 15, 30, 0, loc), result)

	result, err = TimeModifier{Kind: ModifierDate, Month: 3, Day: 6}.Apply(base)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 6, 9, 15, 30, 0, loc), result)

	result, err = TimeModifier{Kind: ModifierDate, Year: 2001, Month: 3, Day: 6}.Apply(base)
	require.NoError(t, err)
	require.Equal(t, time.Date(2001, 3, 6, 9, 15, 30, 0, loc), result)
}

func TestDateApply_RejectsInvalidDate(t *testing.T) {
	base := time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC)

	_, err := TimeModifier{Kind: ModifierDate, Month: 2, Day: 30}.Apply(base)
	require.Error(t, err)

	// 2023 is not a leap year.
	_, err = TimeModifier{Kind: ModifierDate, Month: 2, Day: 29}.Apply(base)
	require.Error(t, err)
}

func TestWeekdayApply_StrictlyAfter(t *testing.T) {
	loc := newYork(t)
	// 2024-05-07 is a Tuesday.
	base := time.Date(2024, 5, 7, 10, 0, 0, 0, loc)

	// Tuesday applied to a Tuesday is a full week out, never the same day.
	result, err := TimeModifier{Kind: ModifierWeekday, Weekday: 1}.Apply(base)
	require.NoError(t, err)
	require.Equal(t, base.AddDate(0, 0, 7), result)

	// Wednesday is the very next day.
	result, err = TimeModifier{Kind: ModifierWeekday, Weekday: 2}.Apply(base)
	require.NoError(t, err)
	require.Equal(t, base.AddDate(0, 0, 1), result)

	// Monday wraps to next week.
	result, err = TimeModifier{Kind: ModifierWeekday, Weekday: 0}.Apply(base)
	require.NoError(t, err)
	require.Equal(t, base.AddDate(0, 0, 6), result)
	require.Equal(t, time.Monday, result.Weekday())
}

func TestMonthsApply_ClampsToEndOfMonth(t *testing.T) {
	loc := newYork(t)

	base := time.Date(2023, 1, 31, 8, 30, 0, 0, loc)
	result, err := TimeModifier{Kind: ModifierMonths, Months: 1}.Apply(base)
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, 2, 28, 8, 30, 0, 0, loc), result)

	// Leap year keeps the 29th.
	base = time.Date(2024, 1, 31, 8, 30, 0, 0, loc)
	result, err = TimeModifier{Kind: ModifierMonths, Months: 1}.Apply(base)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 2, 29, 8, 30, 0, 0, loc), result)

	// Year rollover.
	base = time.Date(2023, 11, 15, 8, 30, 0, 0, loc)
	result, err = TimeModifier{Kind: ModifierMonths, Months: 3}.Apply(base)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 2, 15, 8, 30, 0, 0, loc), result)
}

func TestApplyAll_LeftToRight(t *testing.T) {
	loc := newYork(t)
	// 2024-05-07 is a Tuesday.
	base := time.Date(2024, 5, 7, 10, 0, 0, 0, loc)

	// One week out, then snap to the Tuesday after that point.
	result, err := ApplyAll([]TimeModifier{
		{Kind: ModifierDelay, DelayMs: 7 * 24 * 60 * 60 * 1000},
		{Kind: ModifierWeekday, Weekday: 1},
	}, base)
	require.NoError(t, err)
	require.Equal(t, base.AddDate(0, 0, 14), result)
}

func TestApplyAll_StopsOnError(t *testing.T) {
	base := time.Date(2024, 5, 7, 10, 0, 0, 0, time.UTC)
	_, err := ApplyAll([]TimeModifier{
		{Kind: ModifierDate, Month: 2, Day: 31},
		{Kind: ModifierDelay, DelayMs: 1000},
	}, base)
	require.Error(t, err)
}

func TestNextOccurrence(t *testing.T) {
	base := time.Date(2024, 5, 7, 10, 0, 0, 0, time.UTC)

	_, recurring, err := Reminder{TriggerTime: base, Message: "x"}.NextOccurrence()
	require.NoError(t, err)
	require.False(t, recurring)

	next, recurring, err := Reminder{
		TriggerTime: base,
		Message:     "x",
		Interval:    []TimeModifier{{Kind: ModifierDelay, DelayMs: 86400000}},
	}.NextOccurrence()
	require.NoError(t, err)
	require.True(t, recurring)
	require.Equal(t, base.AddDate(0, 0, 1), next)
}
