package repositories

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vadimgribanov.com/tg-remind/internal/database"
	"vadimgribanov.com/tg-remind/internal/models"
)

func newTestRepo(t *testing.T) *SnapshotRepo {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return NewSnapshotRepo(db)
}

func TestSnapshotRepo_RemindersRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	saved := []models.UserReminder{
		{UserID: 1, Reminder: models.Reminder{
			TriggerTime: time.Date(2024, 5, 7, 15, 0, 0, 0, loc),
			Message:     "pay rent",
		}},
		{UserID: 2, Reminder: models.Reminder{
			TriggerTime: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
			Message:     "standup",
			Interval:    []models.TimeModifier{{Kind: models.ModifierDelay, DelayMs: 86400000}},
		}},
	}
	require.NoError(t, repo.SaveReminders(saved))

	loaded, err := repo.LoadReminders()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	for i, ur := range loaded {
		require.Equal(t, saved[i].UserID, ur.UserID)
		require.Equal(t, saved[i].Reminder.Message, ur.Reminder.Message)
		require.True(t, saved[i].Reminder.TriggerTime.Equal(ur.Reminder.TriggerTime))
		require.Equal(t,
			saved[i].Reminder.TriggerTime.Location().String(),
			ur.Reminder.TriggerTime.Location().String())
		require.Equal(t, saved[i].Reminder.Interval, ur.Reminder.Interval)
	}
}

func TestSnapshotRepo_SaveOverwritesPreviousSnapshot(t *testing.T) {
	repo := newTestRepo(t)

	first := []models.UserReminder{{UserID: 1, Reminder: models.Reminder{
		TriggerTime: time.Date(2024, 5, 7, 15, 0, 0, 0, time.UTC), Message: "old",
	}}}
	require.NoError(t, repo.SaveReminders(first))

	second := []models.UserReminder{{UserID: 1, Reminder: models.Reminder{
		TriggerTime: time.Date(2024, 5, 8, 15, 0, 0, 0, time.UTC), Message: "new",
	}}}
	require.NoError(t, repo.SaveReminders(second))

	loaded, err := repo.LoadReminders()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "new", loaded[0].Reminder.Message)
}

func TestSnapshotRepo_EmptyMeansStartEmpty(t *testing.T) {
	repo := newTestRepo(t)

	reminders, err := repo.LoadReminders()
	require.NoError(t, err)
	require.Empty(t, reminders)

	prefs, err := repo.LoadPreferences()
	require.NoError(t, err)
	require.Empty(t, prefs)
}

func TestSnapshotRepo_PreferencesRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	saved := map[int64]models.Preferences{
		1: {Timezone: "Europe/Berlin", TimeFormat: models.TimeFormat24h},
		2: {Timezone: "America/New_York", TimeFormat: models.TimeFormat12h},
	}
	require.NoError(t, repo.SavePreferences(saved))

	loaded, err := repo.LoadPreferences()
	require.NoError(t, err)
	require.Equal(t, saved, loaded)
}

func TestSnapshotRepo_MalformedRowsAreErrors(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.db.Exec(`
		INSERT INTO reminders (user_id, trigger_at_ms, trigger_tz, message, interval)
		VALUES (1, 0, 'Not/A_Zone', 'x', NULL)
	`)
	require.NoError(t, err)
	_, err = repo.LoadReminders()
	require.Error(t, err)

	_, err = repo.db.Exec(`DELETE FROM reminders`)
	require.NoError(t, err)
	_, err = repo.db.Exec(`
		INSERT INTO reminders (user_id, trigger_at_ms, trigger_tz, message, interval)
		VALUES (1, 0, 'UTC', 'x', 'not json')
	`)
	require.NoError(t, err)
	_, err = repo.LoadReminders()
	require.Error(t, err)

	_, err = repo.db.Exec(`INSERT INTO preferences (user_id, timezone, time_format) VALUES (1, 'UTC', '13h')`)
	require.NoError(t, err)
	_, err = repo.LoadPreferences()
	require.Error(t, err)
}

func TestSnapshotRepo_ImportLegacyTimezones(t *testing.T) {
	repo := newTestRepo(t)
	store := NewPreferenceStore("America/New_York")

	path := filepath.Join(t.TempDir(), "timezones.json")
	legacy := map[string]string{"10": "Europe/Berlin", "20": "Asia/Tokyo"}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	require.NoError(t, repo.ImportLegacyTimezones(path, store))

	// Entries are folded into merged preference records with the default
	// time format.
	require.Equal(t, "Europe/Berlin", store.Get(10).Timezone)
	require.Equal(t, models.TimeFormat12h, store.Get(10).TimeFormat)
	require.Equal(t, "Asia/Tokyo", store.Get(20).Timezone)

	// Migrated records are persisted and the legacy file is removed.
	persisted, err := repo.LoadPreferences()
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Running again is a no-op.
	require.NoError(t, repo.ImportLegacyTimezones(path, store))
}

func TestSnapshotRepo_ImportLegacyTimezonesMalformedIsError(t *testing.T) {
	repo := newTestRepo(t)
	store := NewPreferenceStore("America/New_York")

	path := filepath.Join(t.TempDir(), "timezones.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))
	require.Error(t, repo.ImportLegacyTimezones(path, store))
}
