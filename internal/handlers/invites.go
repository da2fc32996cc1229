package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetInviteState returns the PII-minimized projection of an invite. The
// stored RSVP payload and status value never leave the server through this
// endpoint, only the derived has_rsvp boolean.
func (h *Handlers) GetInviteState(c *gin.Context) {
	token := c.Param("token")

	invite, err := h.invites.Get(c.Request.Context(), token)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"guest_name":    invite.GuestName,
		"event_slug":    invite.EventSlug,
		"puzzle_solved": invite.PuzzleSolved,
		"has_rsvp":      invite.HasRSVP(),
	})
}

type AttemptRequest struct {
	Token      string          `json:"token" binding:"required"`
	Submission json.RawMessage `json:"submission" binding:"required"`
}

// AttemptPuzzle runs one puzzle attempt. The throttle middleware has
// already passed the request through by the time the gate runs.
func (h *Handlers) AttemptPuzzle(c *gin.Context) {
	eventSlug := c.Param("slug")

	var req AttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	solved, err := h.puzzle.Attempt(c.Request.Context(), eventSlug, req.Token, req.Submission)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"solved": solved})
}

const maxRSVPPayload = 16 << 10

// SubmitRSVP upserts the guest's response. The body is stored verbatim as
// the opaque RSVP payload; the response acknowledges and echoes nothing.
func (h *Handlers) SubmitRSVP(c *gin.Context) {
	token := c.Param("token")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRSVPPayload+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	if len(payload) > maxRSVPPayload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}
	if !json.Valid(payload) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload must be valid JSON"})
		return
	}

	if err := h.rsvp.Submit(c.Request.Context(), token, payload); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

// ThrottleMiddleware rate-limits puzzle attempts per invite token before
// they reach the gate. Requests without a parseable token fall through:
// the gate rejects them anyway and they carry no brute-force value.
func (h *Handlers) ThrottleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRSVPPayload+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			c.Abort()
			return
		}
		if len(body) > maxRSVPPayload {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var probe struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(body, &probe); err != nil || probe.Token == "" {
			c.Next()
			return
		}

		result, err := h.limiter.Allow(c.Request.Context(), probe.Token)
		if err != nil {
			// A broken limiter backend must not take the service down;
			// log and let the attempt through.
			h.logger.Error("rate limiter failed", "error", err)
			c.Next()
			return
		}
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds()) + 1
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
			c.Abort()
			return
		}

		c.Next()
	}
}
