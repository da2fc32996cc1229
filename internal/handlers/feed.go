package handlers

import (
	"net/http"

	"github.com/tigar/puzzle2rsvp/internal/feed"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The feed sits behind admin JWT auth; origin is not the boundary.
		return true
	},
}

// HandleFeed upgrades an admin dashboard connection onto the live feed.
// Runs behind AuthMiddleware.
func (h *Handlers) HandleFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := feed.NewClient(h.hub, conn)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
