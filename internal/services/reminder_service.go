package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vadimgribanov.com/tg-remind/internal/command"
	"vadimgribanov.com/tg-remind/internal/models"
	"vadimgribanov.com/tg-remind/internal/repositories"
)

// SnapshotTrigger requests an asynchronous snapshot write. Implementations
// must never block the caller.
type SnapshotTrigger interface {
	Request()
}

// ReminderService executes parsed commands against the in-memory stores and
// produces the user-facing response text. Errors returned from Handle are
// user-facing messages, never internal failures.
type ReminderService struct {
	reminders *repositories.ReminderStore
	prefs     *repositories.PreferenceStore
	snapshots SnapshotTrigger
}

func NewReminderService(
	reminders *repositories.ReminderStore,
	prefs *repositories.PreferenceStore,
	snapshots SnapshotTrigger,
) *ReminderService {
	return &ReminderService{
		reminders: reminders,
		prefs:     prefs,
		snapshots: snapshots,
	}
}

func (s *ReminderService) Handle(ctx context.Context, userID int64, cmd command.Command) (string, error) {
	switch cmd := cmd.(type) {
	case command.ScheduleReminder:
		return s.scheduleReminder(ctx, userID, cmd)
	case command.CancelReminder:
		return s.cancelReminder(userID, cmd.ID)
	case command.SetInterval:
		return s.setInterval(userID, cmd.ID, cmd.Modifiers)
	case command.ClearInterval:
		return s.clearInterval(userID, cmd.ID)
	case command.ListReminders:
		return s.listReminders(userID)
	case command.SetTimezone:
		return s.setTimezone(userID, cmd.Name)
	case command.SetTimeFormat:
		s.prefs.SetTimeFormat(userID, cmd.Format)
		s.snapshots.Request()
		return fmt.Sprintf("Time format set to %s", cmd.Format), nil
	case command.Help:
		return helpText, nil
	default:
		return "", fmt.Errorf("unsupported command")
	}
}

// scheduleReminder creates one reminder per expanded candidate time, in
// discovery order.
func (s *ReminderService) scheduleReminder(ctx context.Context, userID int64, cmd command.ScheduleReminder) (string, error) {
	prefs := s.prefs.Get(userID)
	lines := make([]string, 0, len(cmd.Times))
	for _, t := range cmd.Times {
		id := s.reminders.Add(userID, models.Reminder{TriggerTime: t, Message: cmd.Message})
		lines = append(lines, fmt.Sprintf("Scheduled reminder for %s (#%d)", prefs.FormatTime(t), id))
	}
	s.snapshots.Request()
	slog.InfoContext(ctx, "Reminders scheduled", "user_id", userID, "count", len(cmd.Times))
	return strings.Join(lines, "\n"), nil
}

func (s *ReminderService) cancelReminder(userID int64, id int) (string, error) {
	removed, err := s.reminders.RemoveAt(userID, id)
	if err != nil {
		return "", fmt.Errorf("%w: %d", err, id)
	}
	s.snapshots.Request()
	return fmt.Sprintf("Removed reminder '%s'", removed.Message), nil
}

func (s *ReminderService) setInterval(userID int64, id int, modifiers []models.TimeModifier) (string, error) {
	reminder, err := s.reminders.SetInterval(userID, id, modifiers)
	if err != nil {
		return "", fmt.Errorf("%w: %d", err, id)
	}
	s.snapshots.Request()
	return fmt.Sprintf("Set interval for reminder '%s' (#%d)", reminder.Message, id), nil
}

func (s *ReminderService) clearInterval(userID int64, id int) (string, error) {
	reminder, err := s.reminders.ClearInterval(userID, id)
	if err != nil {
		return "", fmt.Errorf("%w: %d", err, id)
	}
	s.snapshots.Request()
	return fmt.Sprintf("Cleared interval for reminder '%s' (#%d)", reminder.Message, id), nil
}

func (s *ReminderService) listReminders(userID int64) (string, error) {
	reminders := s.reminders.List(userID)
	if len(reminders) == 0 {
		return "No reminders", nil
	}
	prefs := s.prefs.Get(userID)
	lines := make([]string, 0, len(reminders))
	for id, reminder := range reminders {
		line := fmt.Sprintf("%d: %s - %s", id, prefs.FormatTime(reminder.TriggerTime), reminder.Message)
		next, recurring, err := reminder.NextOccurrence()
		if err != nil {
			return "", fmt.Errorf("time computation error: %w", err)
		}
		if recurring {
			line += fmt.Sprintf(" (Repeats at %s)", prefs.FormatTime(next))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (s *ReminderService) setTimezone(userID int64, name string) (string, error) {
	if _, err := time.LoadLocation(name); err != nil {
		return "", fmt.Errorf("unknown timezone %q", name)
	}
	s.prefs.SetTimezone(userID, name)
	s.snapshots.Request()
	return "Timezone set", nil
}

var helpText = strings.Join([]string{
	"Time modifier examples:",
	"1d - 1 day from now",
	"1w1h5m3s - 1 week, 1 hour, 5 minutes, 3 seconds from now",
	"3pm - 3:00 PM",
	"3:30pm - 3:30 PM",
	"15:30 - 15:30 on the 24-hour clock",
	"2001-03-06 - March 6th, 2001",
	"-3-6 - March 6th of the current year",
	"1mo - 1 month",
	"tuesday - Tuesday",
	"1w tuesday - The next Tuesday in 1 week",
	"(monday,friday) 9am - Next Monday and next Friday, both at 9:00 AM",
	"",
	"Commands:",
	"`$r|remindme|reminder <modifiers>; message` - Schedule a reminder",
	"`$cr|cancelreminder <id>` - Cancel a reminder",
	"`$rs|reminders` - List reminders",
	"`$si|setinterval <id> <modifiers>` - Set a reminder to be repeated on an interval",
	"`$ci|clearinterval <id>` - Clear the interval of a reminder",
	"`$tz|timezone <timezone>` - Set your timezone",
	"`$tf|timeformat 12h|24h` - Set your time display format",
	"`$h|help` - Show help",
}, "\n")
