package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tigar/puzzle2rsvp/internal/models"
)

func TestMemoryCreateGeneratesUniqueTokens(t *testing.T) {
	s := NewMemoryInviteStore()
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	first, err := s.Create(ctx, "gala", "Ada", base)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := s.Create(ctx, "gala", "Ben", base.Add(time.Second))
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	if first.Token == second.Token {
		t.Fatalf("expected unique tokens, got duplicate %s", first.Token)
	}
	if first.PuzzleSolved {
		t.Fatalf("new invite must start unsolved")
	}
}

func TestMemoryGetUnknownToken(t *testing.T) {
	s := NewMemoryInviteStore()

	if _, err := s.Get(context.Background(), "no-such-token"); !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("expected ErrInviteNotFound, got %v", err)
	}
}

func TestMemoryMarkSolvedLatches(t *testing.T) {
	s := NewMemoryInviteStore()
	ctx := context.Background()
	base := time.Unix(1_700_100_000, 0)

	invite, _ := s.Create(ctx, "gala", "Ada", base)

	flipped, err := s.MarkSolved(ctx, invite.Token, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("mark solved failed: %v", err)
	}
	if !flipped {
		t.Fatalf("first mark solved should report the flip")
	}

	// Second call is a harmless no-op
	flipped, err = s.MarkSolved(ctx, invite.Token, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("second mark solved failed: %v", err)
	}
	if flipped {
		t.Fatalf("already-solved token must not report a flip")
	}

	got, _ := s.Get(ctx, invite.Token)
	if !got.PuzzleSolved {
		t.Fatalf("invite should be solved")
	}
	if got.SolvedAt == nil || !got.SolvedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("solved_at should keep the first flip time, got %v", got.SolvedAt)
	}
}

func TestMemoryUpsertRSVPOverwrites(t *testing.T) {
	s := NewMemoryInviteStore()
	ctx := context.Background()
	base := time.Unix(1_700_200_000, 0)

	invite, _ := s.Create(ctx, "gala", "Ada", base)

	first := json.RawMessage(`{"attending":"yes","diet":"vegan"}`)
	if err := s.UpsertRSVP(ctx, invite.Token, models.RSVPAccepted, first, base.Add(time.Minute)); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := json.RawMessage(`{"attending":"no"}`)
	if err := s.UpsertRSVP(ctx, invite.Token, models.RSVPDeclined, second, base.Add(2*time.Minute)); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, _ := s.Get(ctx, invite.Token)
	if got.RSVPData != string(second) {
		t.Fatalf("expected full overwrite, got %s", got.RSVPData)
	}
	if got.RSVPStatus != models.RSVPDeclined {
		t.Fatalf("expected declined, got %s", got.RSVPStatus)
	}
	if got.RSVPAt == nil || !got.RSVPAt.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("rsvp_at should advance on every write, got %v", got.RSVPAt)
	}
}

func TestMemoryUpsertRSVPUnknownToken(t *testing.T) {
	s := NewMemoryInviteStore()

	err := s.UpsertRSVP(context.Background(), "ghost", models.RSVPAccepted, json.RawMessage(`{}`), time.Now())
	if !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("expected ErrInviteNotFound, got %v", err)
	}
}

func TestMemoryListForEventOrdersByCreation(t *testing.T) {
	s := NewMemoryInviteStore()
	ctx := context.Background()
	base := time.Unix(1_700_300_000, 0)

	third, _ := s.Create(ctx, "gala", "Cleo", base.Add(2*time.Second))
	first, _ := s.Create(ctx, "gala", "Ada", base)
	second, _ := s.Create(ctx, "gala", "Ben", base.Add(time.Second))
	s.Create(ctx, "other-event", "Dan", base)

	invites, err := s.ListForEvent(ctx, "gala")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(invites) != 3 {
		t.Fatalf("expected 3 invites, got %d", len(invites))
	}
	want := []string{first.Token, second.Token, third.Token}
	for i, invite := range invites {
		if invite.Token != want[i] {
			t.Fatalf("wrong order at %d: got %s", i, invite.GuestName)
		}
	}
}
