package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/TPI-Manager/TPI-Manager/internal/realtime"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
	"github.com/TPI-Manager/TPI-Manager/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler upgrades connections and hands them to the realtime hub.
type WSHandler struct {
	hub *realtime.Hub
}

// NewWSHandler creates a new handler.
func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect godoc
// @Summary Open a websocket for live events
// @Description Clients send {"action":"join","topic":"chat/CST/3rd/Morning"} and {"action":"leave",...} control frames and receive events as JSON
// @Tags Realtime
// @Success 101 {string} string "switching protocols"
// @Router /ws [get]
// @Security BearerAuth
func (h *WSHandler) Connect(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure.
		return
	}
	h.hub.HandleConnection(conn, claims)
}
