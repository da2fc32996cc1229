package gate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tigar/puzzle2rsvp/internal/models"
	"github.com/tigar/puzzle2rsvp/internal/store"
)

// ErrPuzzleNotSolved rejects an RSVP on an unsolved invite. Unlike the
// not-found cases it is surfaced distinctly, so the client can send the
// guest back to the puzzle.
var ErrPuzzleNotSolved = errors.New("puzzle not solved")

// RSVPHook runs after every accepted RSVP write.
type RSVPHook func(invite models.Invite)

// RSVPGate guards RSVP writes behind the solved latch. It re-reads the
// invite on every submission; a client claiming to have solved the puzzle
// is never believed.
type RSVPGate struct {
	invites store.InviteStore
	logger  *slog.Logger
	onRSVP  RSVPHook
	now     func() time.Time
}

func NewRSVPGate(invites store.InviteStore, logger *slog.Logger, onRSVP RSVPHook) *RSVPGate {
	return &RSVPGate{
		invites: invites,
		logger:  logger,
		onRSVP:  onRSVP,
		now:     time.Now,
	}
}

// Submit overwrites the invite's RSVP with the given payload. The payload
// is stored verbatim and never interpreted beyond deriving the status; the
// prior response is neither merged nor returned.
func (g *RSVPGate) Submit(ctx context.Context, token string, payload json.RawMessage) error {
	invite, err := g.invites.Get(ctx, token)
	if err != nil {
		return err
	}
	if !invite.PuzzleSolved {
		return ErrPuzzleNotSolved
	}

	status := deriveStatus(payload)
	if err := g.invites.UpsertRSVP(ctx, token, status, payload, g.now()); err != nil {
		return err
	}

	if g.onRSVP != nil {
		updated, err := g.invites.Get(ctx, token)
		if err == nil {
			g.onRSVP(*updated)
		}
	}
	return nil
}

// deriveStatus inspects the payload's "attending" field. A guest who
// submits anything at all has responded, so the fallback is accepted.
func deriveStatus(payload json.RawMessage) models.RSVPStatus {
	var probe struct {
		Attending any `json:"attending"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return models.RSVPAccepted
	}

	switch v := probe.Attending.(type) {
	case bool:
		if !v {
			return models.RSVPDeclined
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "no", "false", "declined", "not attending", "not_attending":
			return models.RSVPDeclined
		}
	}
	return models.RSVPAccepted
}
