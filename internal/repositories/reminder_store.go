package repositories

import (
	"errors"
	"sort"
	"sync"
	"time"

	"vadimgribanov.com/tg-remind/internal/models"
)

// ErrInvalidID is returned when a positional reminder id does not refer to an
// existing reminder.
var ErrInvalidID = errors.New("invalid reminder ID")

// ReminderStore keeps every user's reminders in memory, each user's slice
// sorted ascending by trigger time. Ids are positional: a reminder's id is
// its current index in that sorted slice and shifts as reminders come and go.
// All operations are short critical sections with no I/O under the lock.
type ReminderStore struct {
	mu     sync.Mutex
	byUser map[int64][]models.Reminder
}

func NewReminderStore() *ReminderStore {
	return &ReminderStore{byUser: make(map[int64][]models.Reminder)}
}

// Add inserts the reminder keeping the sort order and returns its position.
// Ties on trigger time go after existing entries, so insertion order breaks
// ties the way a stable sort would.
func (s *ReminderStore) Add(userID int64, reminder models.Reminder) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(userID, reminder)
}

func (s *ReminderStore) insert(userID int64, reminder models.Reminder) int {
	list := s.byUser[userID]
	i := sort.Search(len(list), func(i int) bool {
		return list[i].TriggerTime.After(reminder.TriggerTime)
	})
	list = append(list, models.Reminder{})
	copy(list[i+1:], list[i:])
	list[i] = reminder
	s.byUser[userID] = list
	return i
}

// List returns a copy of the user's reminders in trigger-time order; an
// unknown user gets an empty slice.
func (s *ReminderStore) List(userID int64) []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byUser[userID]
	out := make([]models.Reminder, len(list))
	copy(out, list)
	return out
}

// RemoveAt removes and returns the reminder at the given position.
func (s *ReminderStore) RemoveAt(userID int64, index int) (models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byUser[userID]
	if index < 0 || index >= len(list) {
		return models.Reminder{}, ErrInvalidID
	}
	removed := list[index]
	s.byUser[userID] = append(list[:index], list[index+1:]...)
	return removed, nil
}

// SetInterval attaches a recurrence interval to the reminder at the given
// position and returns the updated reminder.
func (s *ReminderStore) SetInterval(userID int64, index int, interval []models.TimeModifier) (models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byUser[userID]
	if index < 0 || index >= len(list) {
		return models.Reminder{}, ErrInvalidID
	}
	list[index].Interval = interval
	return list[index], nil
}

func (s *ReminderStore) ClearInterval(userID int64, index int) (models.Reminder, error) {
	return s.SetInterval(userID, index, nil)
}

// Users returns the ids of all users that currently have reminders, in no
// particular order.
func (s *ReminderStore) Users() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]int64, 0, len(s.byUser))
	for id := range s.byUser {
		users = append(users, id)
	}
	return users
}

// PopNextDue removes and returns the user's earliest reminder if its trigger
// time is at or before now.
func (s *ReminderStore) PopNextDue(userID int64, now time.Time) (models.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byUser[userID]
	if len(list) == 0 || list[0].TriggerTime.After(now) {
		return models.Reminder{}, false
	}
	due := list[0]
	s.byUser[userID] = list[1:]
	return due, true
}

// Snapshot flattens the store into user-reminder pairs for persistence.
func (s *ReminderStore) Snapshot() []models.UserReminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.UserReminder
	for userID, list := range s.byUser {
		for _, reminder := range list {
			all = append(all, models.UserReminder{UserID: userID, Reminder: reminder})
		}
	}
	return all
}

// Restore replaces the store's contents with the given pairs, re-sorting each
// user's list so the ordering invariant holds regardless of on-disk order.
func (s *ReminderStore) Restore(reminders []models.UserReminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser = make(map[int64][]models.Reminder)
	for _, ur := range reminders {
		s.byUser[ur.UserID] = append(s.byUser[ur.UserID], ur.Reminder)
	}
	for _, list := range s.byUser {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].TriggerTime.Before(list[j].TriggerTime)
		})
	}
}
