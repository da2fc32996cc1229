package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tigar/puzzle2rsvp/internal/config"
	"github.com/tigar/puzzle2rsvp/internal/feed"
	"github.com/tigar/puzzle2rsvp/internal/gate"
	"github.com/tigar/puzzle2rsvp/internal/notify"
	"github.com/tigar/puzzle2rsvp/internal/ratelimit"
	"github.com/tigar/puzzle2rsvp/internal/store"
	"github.com/tigar/puzzle2rsvp/internal/verifier"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	config   *config.Config
	logger   *slog.Logger
	invites  store.InviteStore
	events   store.EventStore
	puzzle   *gate.PuzzleGate
	rsvp     *gate.RSVPGate
	limiter  ratelimit.Limiter
	hub      *feed.Hub
	notifier *notify.Notifier
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	invites store.InviteStore,
	events store.EventStore,
	puzzle *gate.PuzzleGate,
	rsvp *gate.RSVPGate,
	limiter ratelimit.Limiter,
	hub *feed.Hub,
	notifier *notify.Notifier,
) *Handlers {
	return &Handlers{
		config:   cfg,
		logger:   logger,
		invites:  invites,
		events:   events,
		puzzle:   puzzle,
		rsvp:     rsvp,
		limiter:  limiter,
		hub:      hub,
		notifier: notifier,
	}
}

// respondError maps core errors onto the public taxonomy. Unknown tokens,
// cross-event tokens and unregistered verifiers all collapse into the same
// invalid-invite 404; only the unsolved-puzzle case is distinguishable.
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInviteNotFound),
		errors.Is(err, store.ErrEventNotFound),
		errors.Is(err, verifier.ErrUnknownEvent):
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid invite"})
	case errors.Is(err, gate.ErrPuzzleNotSolved):
		c.JSON(http.StatusForbidden, gin.H{"error": "puzzle not solved"})
	default:
		h.logger.Error("request failed", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
