package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vadimgribanov.com/tg-remind/internal/models"
	"vadimgribanov.com/tg-remind/internal/repositories"
)

// Notifier delivers a reminder message directly to a user. Failures are
// logged by the scheduler and never retried.
type Notifier interface {
	Notify(userID int64, message string) error
}

// Scheduler polls the reminder store on a fixed period, fires due reminders,
// reschedules recurring ones, and triggers a snapshot after each tick that
// fired anything.
type Scheduler struct {
	reminders *repositories.ReminderStore
	notifier  Notifier
	snapshots SnapshotTrigger
	period    time.Duration

	ticker    *time.Ticker
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

func NewScheduler(
	reminders *repositories.ReminderStore,
	notifier Notifier,
	snapshots SnapshotTrigger,
	period time.Duration,
) *Scheduler {
	return &Scheduler{
		reminders: reminders,
		notifier:  notifier,
		snapshots: snapshots,
		period:    period,
		stopChan:  make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler already running")
	}

	s.ticker = time.NewTicker(s.period)
	s.isRunning = true

	s.wg.Add(1)
	go s.loop(ctx)

	slog.InfoContext(ctx, "Reminder scheduler started", "period", s.period)
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	close(s.stopChan)
	s.ticker.Stop()
	s.wg.Wait()

	s.isRunning = false
	slog.InfoContext(ctx, "Reminder scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case <-s.ticker.C:
			s.tick(ctx, time.Now())
		}
	}
}

// tick fires every due reminder. Users are visited in map order; within one
// user firing order is ascending trigger time because the store stays sorted.
// Delivery and persistence happen outside the store's lock.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	fired := false
	for _, userID := range s.reminders.Users() {
		for {
			reminder, ok := s.reminders.PopNextDue(userID, now)
			if !ok {
				break
			}
			fired = true
			s.reschedule(ctx, userID, reminder)
			if err := s.notifier.Notify(userID, "Reminder: "+reminder.Message); err != nil {
				slog.ErrorContext(ctx, "Failed to deliver reminder",
					"error", err, "user_id", userID, "message", reminder.Message)
			}
		}
	}
	if fired {
		s.snapshots.Request()
	}
}

// reschedule re-inserts the successor of a fired recurring reminder. A
// calendar error ends the recurrence: the failure is logged and no successor
// is created.
func (s *Scheduler) reschedule(ctx context.Context, userID int64, reminder models.Reminder) {
	next, recurring, err := reminder.NextOccurrence()
	if !recurring {
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reschedule reminder, recurrence ends",
			"error", err, "user_id", userID, "message", reminder.Message)
		return
	}
	s.reminders.Add(userID, models.Reminder{
		TriggerTime: next,
		Message:     reminder.Message,
		Interval:    reminder.Interval,
	})
}
