package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tigar/puzzle2rsvp/internal/models"
)

var (
	ErrInviteNotFound = errors.New("invite not found")
	ErrEventNotFound  = errors.New("event not found")
)

// InviteStore owns all mutation of invite rows. It stores, it does not
// decide: the solved precondition for RSVP writes belongs to the RSVP gate.
type InviteStore interface {
	// Get returns the invite for a token or ErrInviteNotFound.
	Get(ctx context.Context, token string) (*models.Invite, error)

	// Create stores a new unsolved invite with a freshly generated token.
	Create(ctx context.Context, eventSlug, guestName string, now time.Time) (*models.Invite, error)

	// MarkSolved flips the puzzle latch. The flip is a conditional update:
	// flipped reports whether this call performed the transition, so
	// first-solve side effects can fire exactly once under concurrent
	// attempts. Calling on an already-solved token is a no-op.
	MarkSolved(ctx context.Context, token string, now time.Time) (flipped bool, err error)

	// UpsertRSVP overwrites the stored response wholesale. No merge with a
	// prior payload, rsvp_at advances on every call.
	UpsertRSVP(ctx context.Context, token string, status models.RSVPStatus, payload json.RawMessage, now time.Time) error

	// ListForEvent returns the event's invites ordered by creation time.
	ListForEvent(ctx context.Context, eventSlug string) ([]models.Invite, error)
}

// EventStore holds the seeded event records. Guest-facing operations never
// mutate events.
type EventStore interface {
	Get(ctx context.Context, slug string) (*models.Event, error)
	Upsert(ctx context.Context, event *models.Event) error
	List(ctx context.Context) ([]models.Event, error)

	// DeactivatePast archives events whose date has passed and returns how
	// many rows were flipped.
	DeactivatePast(ctx context.Context, now time.Time) (int64, error)
}
