package archiver

import (
	"context"
	"log/slog"
	"time"

	"github.com/tigar/puzzle2rsvp/internal/store"

	"github.com/robfig/cron/v3"
)

// Archiver flips is_active off for events whose date has passed. Archival
// only affects admin display; existing invites keep working, so a late
// RSVP the morning after is still accepted.
type Archiver struct {
	cron   *cron.Cron
	events store.EventStore
	logger *slog.Logger
}

func New(events store.EventStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		events: events,
		logger: logger,
	}
}

func (a *Archiver) Start() {
	if _, err := a.cron.AddFunc("@hourly", a.sweep); err != nil {
		a.logger.Error("failed to register archive job", "error", err)
		return
	}
	a.cron.Start()

	// Catch up immediately so a restart does not wait an hour.
	go a.sweep()
}

func (a *Archiver) Stop() {
	ctx := a.cron.Stop()
	<-ctx.Done()
}

func (a *Archiver) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	flipped, err := a.events.DeactivatePast(ctx, time.Now())
	if err != nil {
		a.logger.Error("event archive sweep failed", "error", err)
		return
	}
	if flipped > 0 {
		a.logger.Info("archived past events", "count", flipped)
	}
}
