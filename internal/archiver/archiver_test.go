package archiver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tigar/puzzle2rsvp/internal/models"
	"github.com/tigar/puzzle2rsvp/internal/store"

	"github.com/stretchr/testify/require"
)

func TestSweepDeactivatesPastEvents(t *testing.T) {
	events := store.NewMemoryEventStore()
	ctx := context.Background()

	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)
	require.NoError(t, events.Upsert(ctx, &models.Event{Slug: "last-week", Title: "Last Week", EventDate: &past, IsActive: true}))
	require.NoError(t, events.Upsert(ctx, &models.Event{Slug: "next-week", Title: "Next Week", EventDate: &future, IsActive: true}))
	require.NoError(t, events.Upsert(ctx, &models.Event{Slug: "open-ended", Title: "Open Ended", IsActive: true}))

	a := New(events, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.sweep()

	got, err := events.Get(ctx, "last-week")
	require.NoError(t, err)
	require.False(t, got.IsActive)

	got, err = events.Get(ctx, "next-week")
	require.NoError(t, err)
	require.True(t, got.IsActive)

	// Events without a date never expire.
	got, err = events.Get(ctx, "open-ended")
	require.NoError(t, err)
	require.True(t, got.IsActive)

	// Invites for archived events keep working.
	invites := store.NewMemoryInviteStore()
	invite, err := invites.Create(ctx, "last-week", "Late Guest", time.Now())
	require.NoError(t, err)
	flipped, err := invites.MarkSolved(ctx, invite.Token, time.Now())
	require.NoError(t, err)
	require.True(t, flipped)
}
