package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tigar/puzzle2rsvp/internal/models"
	"github.com/tigar/puzzle2rsvp/internal/store"
	"github.com/tigar/puzzle2rsvp/internal/verifier"
)

// SolveHook runs after an invite's latch actually flips. The store's
// conditional update guarantees at most one caller sees the flip, so a hook
// fires exactly once per invite no matter how many attempts race.
type SolveHook func(invite models.Invite)

// PuzzleGate is the single point allowed to mark an invite solved.
// Verifiers stay pure; rate limiting happens upstream.
type PuzzleGate struct {
	invites   store.InviteStore
	verifiers *verifier.Registry
	logger    *slog.Logger
	onSolve   SolveHook
	now       func() time.Time
}

func NewPuzzleGate(invites store.InviteStore, verifiers *verifier.Registry, logger *slog.Logger, onSolve SolveHook) *PuzzleGate {
	return &PuzzleGate{
		invites:   invites,
		verifiers: verifiers,
		logger:    logger,
		onSolve:   onSolve,
		now:       time.Now,
	}
}

// Attempt runs one verification attempt for a token against an event's
// puzzle. A token bound to a different event reports the same not-found as
// an unknown token, so holding a token never reveals other events.
func (g *PuzzleGate) Attempt(ctx context.Context, eventSlug, token string, submission json.RawMessage) (bool, error) {
	invite, err := g.invites.Get(ctx, token)
	if err != nil {
		return false, err
	}
	if invite.EventSlug != eventSlug {
		return false, store.ErrInviteNotFound
	}

	// Solved is a latch: once flipped, any submission reports success and
	// the verifier is never consulted again.
	if invite.PuzzleSolved {
		return true, nil
	}

	v, err := g.verifiers.Resolve(eventSlug)
	if err != nil {
		g.logger.Error("event has invites but no verifier", "event", eventSlug)
		return false, err
	}

	ok := g.evaluate(v, eventSlug, submission)
	if !ok {
		return false, nil
	}

	flipped, err := g.invites.MarkSolved(ctx, token, g.now())
	if err != nil {
		return false, err
	}
	if flipped && g.onSolve != nil {
		solved, err := g.invites.Get(ctx, token)
		if err == nil {
			g.onSolve(*solved)
		}
	}
	return true, nil
}

// evaluate runs the verifier fail-closed: an error or panic counts as a
// wrong answer, never as a pass.
func (g *PuzzleGate) evaluate(v verifier.Verifier, eventSlug string, submission json.RawMessage) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("verifier panicked", "event", eventSlug, "panic", fmt.Sprint(r))
			ok = false
		}
	}()

	ok, err := v.Evaluate(submission)
	if err != nil {
		g.logger.Warn("verifier rejected submission", "event", eventSlug, "error", err)
		return false
	}
	return ok
}
