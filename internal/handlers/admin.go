package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.config.AdminPasswordHash == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin login is disabled"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.config.AdminPasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": h.generateToken()})
}

type CreateInviteRequest struct {
	GuestName string `json:"guest_name" binding:"required,min=1,max=100"`
}

// CreateInvite mints a fresh invite for an event. This is the only surface
// that ever returns an invite token.
func (h *Handlers) CreateInvite(c *gin.Context) {
	eventSlug := c.Param("slug")

	var req CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.events.Get(c.Request.Context(), eventSlug); err != nil {
		h.respondError(c, err)
		return
	}

	invite, err := h.invites.Create(c.Request.Context(), eventSlug, req.GuestName, time.Now())
	if err != nil {
		h.logger.Error("failed to create invite", "event", eventSlug, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invite"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":       invite.Token,
		"guest_name":  invite.GuestName,
		"event_slug":  invite.EventSlug,
		"invite_link": "/invite/" + invite.Token,
		"created_at":  invite.CreatedAt,
	})
}

// ListInvites returns an event's invites for the admin dashboard, ordered
// by creation time.
func (h *Handlers) ListInvites(c *gin.Context) {
	eventSlug := c.Param("slug")

	if _, err := h.events.Get(c.Request.Context(), eventSlug); err != nil {
		h.respondError(c, err)
		return
	}

	invites, err := h.invites.ListForEvent(c.Request.Context(), eventSlug)
	if err != nil {
		h.logger.Error("failed to list invites", "event", eventSlug, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list invites"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

func (h *Handlers) ListEvents(c *gin.Context) {
	events, err := h.events.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

const adminTokenTTL = 12 * time.Hour

func (h *Handlers) generateToken() string {
	claims := jwt.MapClaims{
		"role": "admin",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(adminTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(h.config.JWTSecret))
	return tokenString
}

func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			// Browsers cannot set headers on websocket upgrades; the feed
			// client passes the token as a query parameter instead.
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(h.config.JWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["role"] != "admin" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Next()
	}
}
