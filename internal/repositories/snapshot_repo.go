package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"vadimgribanov.com/tg-remind/internal/database"
	"vadimgribanov.com/tg-remind/internal/models"
)

// SnapshotRepo persists full snapshots of both in-memory stores. Every save
// overwrites the previous snapshot entirely; there is no append-style
// history, and recovery after a crash replays the last completed snapshot.
type SnapshotRepo struct {
	db *database.DB
}

func NewSnapshotRepo(db *database.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// SaveReminders replaces the reminders snapshot with the given state.
func (r *SnapshotRepo) SaveReminders(reminders []models.UserReminder) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin reminders snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reminders`); err != nil {
		return fmt.Errorf("failed to clear reminders snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO reminders (user_id, trigger_at_ms, trigger_tz, message, interval)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare reminders insert: %w", err)
	}
	defer stmt.Close()

	for _, ur := range reminders {
		var interval sql.NullString
		if len(ur.Reminder.Interval) > 0 {
			data, err := json.Marshal(ur.Reminder.Interval)
			if err != nil {
				return fmt.Errorf("failed to encode reminder interval: %w", err)
			}
			interval = sql.NullString{String: string(data), Valid: true}
		}
		_, err := stmt.Exec(
			ur.UserID,
			ur.Reminder.TriggerTime.UnixMilli(),
			ur.Reminder.TriggerTime.Location().String(),
			ur.Reminder.Message,
			interval,
		)
		if err != nil {
			return fmt.Errorf("failed to insert reminder: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reminders snapshot: %w", err)
	}
	return nil
}

// LoadReminders reads the persisted reminder snapshot. An empty table means
// a fresh start; a row that fails to decode is an error the caller treats as
// fatal at startup.
func (r *SnapshotRepo) LoadReminders() ([]models.UserReminder, error) {
	rows, err := r.db.Query(`SELECT user_id, trigger_at_ms, trigger_tz, message, interval FROM reminders`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders snapshot: %w", err)
	}
	defer rows.Close()

	var reminders []models.UserReminder
	for rows.Next() {
		var (
			userID      int64
			triggerAtMs int64
			triggerTz   string
			message     string
			interval    sql.NullString
		)
		if err := rows.Scan(&userID, &triggerAtMs, &triggerTz, &message, &interval); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}

		loc, err := time.LoadLocation(triggerTz)
		if err != nil {
			return nil, fmt.Errorf("reminder has unknown timezone %q: %w", triggerTz, err)
		}

		reminder := models.Reminder{
			TriggerTime: time.UnixMilli(triggerAtMs).In(loc),
			Message:     message,
		}
		if interval.Valid {
			if err := json.Unmarshal([]byte(interval.String), &reminder.Interval); err != nil {
				return nil, fmt.Errorf("failed to decode reminder interval: %w", err)
			}
		}
		reminders = append(reminders, models.UserReminder{UserID: userID, Reminder: reminder})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reminders snapshot: %w", err)
	}
	return reminders, nil
}

// SavePreferences replaces the preferences snapshot with the given state.
func (r *SnapshotRepo) SavePreferences(prefs map[int64]models.Preferences) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin preferences snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM preferences`); err != nil {
		return fmt.Errorf("failed to clear preferences snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO preferences (user_id, timezone, time_format) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare preferences insert: %w", err)
	}
	defer stmt.Close()

	for userID, p := range prefs {
		if _, err := stmt.Exec(userID, p.Timezone, string(p.TimeFormat)); err != nil {
			return fmt.Errorf("failed to insert preferences: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit preferences snapshot: %w", err)
	}
	return nil
}

// LoadPreferences reads the persisted preference snapshot.
func (r *SnapshotRepo) LoadPreferences() (map[int64]models.Preferences, error) {
	rows, err := r.db.Query(`SELECT user_id, timezone, time_format FROM preferences`)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences snapshot: %w", err)
	}
	defer rows.Close()

	prefs := make(map[int64]models.Preferences)
	for rows.Next() {
		var (
			userID     int64
			timezone   string
			timeFormat string
		)
		if err := rows.Scan(&userID, &timezone, &timeFormat); err != nil {
			return nil, fmt.Errorf("failed to scan preferences: %w", err)
		}
		switch models.TimeFormat(timeFormat) {
		case models.TimeFormat12h, models.TimeFormat24h:
		default:
			return nil, fmt.Errorf("preferences have unknown time format %q", timeFormat)
		}
		prefs[userID] = models.Preferences{Timezone: timezone, TimeFormat: models.TimeFormat(timeFormat)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read preferences snapshot: %w", err)
	}
	return prefs, nil
}

// ImportLegacyTimezones performs the one-time migration of the old
// timezone-only JSON file. Each entry is folded into the merged preference
// record with the default time format, the result is persisted, and the file
// is removed so the import never runs twice. A missing file is a no-op.
func (r *SnapshotRepo) ImportLegacyTimezones(path string, store *PreferenceStore) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read legacy timezone file: %w", err)
	}

	var legacy map[string]string
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("failed to decode legacy timezone file: %w", err)
	}

	for userStr, timezone := range legacy {
		userID, err := strconv.ParseInt(userStr, 10, 64)
		if err != nil {
			return fmt.Errorf("legacy timezone file has invalid user id %q: %w", userStr, err)
		}
		store.SetTimezone(userID, timezone)
	}

	if err := r.SavePreferences(store.Snapshot()); err != nil {
		return fmt.Errorf("failed to persist migrated timezones: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove legacy timezone file: %w", err)
	}
	slog.Info("Imported legacy timezone file", "path", path, "entries", len(legacy))
	return nil
}
