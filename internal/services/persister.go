package services

import (
	"context"
	"log/slog"
	"sync"

	"vadimgribanov.com/tg-remind/internal/repositories"
)

// Persister writes snapshots of both stores from a single background
// goroutine. Requests go through a depth-1 channel: a request during an
// in-flight write is coalesced into one follow-up write, and writes can never
// run concurrently with each other. Request never blocks, so command latency
// is decoupled from disk latency.
type Persister struct {
	reminders *repositories.ReminderStore
	prefs     *repositories.PreferenceStore
	repo      *repositories.SnapshotRepo

	requests chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewPersister(
	reminders *repositories.ReminderStore,
	prefs *repositories.PreferenceStore,
	repo *repositories.SnapshotRepo,
) *Persister {
	return &Persister{
		reminders: reminders,
		prefs:     prefs,
		repo:      repo,
		requests:  make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
	}
}

// Request schedules a snapshot write without blocking.
func (p *Persister) Request() {
	select {
	case p.requests <- struct{}{}:
	default:
	}
}

func (p *Persister) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.loop(ctx)
	slog.InfoContext(ctx, "Snapshot persister started")
}

// Stop flushes one final snapshot and waits for the writer to exit.
func (p *Persister) Stop(ctx context.Context) {
	close(p.stopChan)
	p.wg.Wait()
	p.Flush(ctx)
	slog.InfoContext(ctx, "Snapshot persister stopped")
}

func (p *Persister) loop(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case <-p.requests:
			p.Flush(ctx)
		}
	}
}

// Flush writes both snapshots synchronously. Write errors are logged and
// never surfaced to the command that triggered them.
func (p *Persister) Flush(ctx context.Context) {
	if err := p.repo.SaveReminders(p.reminders.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to persist reminders snapshot", "error", err)
	}
	if err := p.repo.SavePreferences(p.prefs.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to persist preferences snapshot", "error", err)
	}
}
