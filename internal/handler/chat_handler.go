package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TPI-Manager/TPI-Manager/internal/service"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
	"github.com/TPI-Manager/TPI-Manager/pkg/response"
)

// ChatHandler wires the room messaging endpoints.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler creates a new handler.
func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// Register mounts the chat routes on the group. Every route addresses the
// room the same way: department in the path, semester and shift as query
// parameters (absent for the department-wide room).
func (h *ChatHandler) Register(g *gin.RouterGroup) {
	g.GET("/:department", h.History)
	g.POST("", h.Send)
	g.PUT("/:department/messages/:id", h.Edit)
	g.DELETE("/:department/messages/:id", h.Delete)
	g.POST("/:department/messages/:id/replies", h.Reply)
	g.POST("/:department/messages/:id/reactions", h.React)
	g.POST("/:department/seen", h.MarkSeen)
}

func roomFromPath(c *gin.Context) service.ChatRoom {
	return service.ChatRoom{
		Department: c.Param("department"),
		Semester:   c.Query("semester"),
		Shift:      c.Query("shift"),
	}
}

// History godoc
// @Summary Room message history
// @Tags Chat
// @Produce json
// @Param semester query string false "class semester"
// @Param shift query string false "class shift"
// @Param limit query int false "max messages"
// @Success 200 {object} response.Envelope
// @Router /chat/{department} [get]
// @Security BearerAuth
func (h *ChatHandler) History(c *gin.Context) {
	room := roomFromPath(c)
	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := h.service.History(c.Request.Context(), room, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// Send godoc
// @Summary Post a message
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body service.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Router /chat [post]
// @Security BearerAuth
func (h *ChatHandler) Send(c *gin.Context) {
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	msg, err := h.service.Send(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

type chatTextRequest struct {
	Text string `json:"text"`
}

// Edit godoc
// @Summary Edit own message
// @Tags Chat
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /chat/{department}/messages/{id} [put]
// @Security BearerAuth
func (h *ChatHandler) Edit(c *gin.Context) {
	var req chatTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid edit payload"))
		return
	}

	msg, err := h.service.Edit(c.Request.Context(), claimsFromContext(c), roomFromPath(c), c.Param("id"), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

// Delete godoc
// @Summary Tombstone a message
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /chat/{department}/messages/{id} [delete]
// @Security BearerAuth
func (h *ChatHandler) Delete(c *gin.Context) {
	msg, err := h.service.Delete(c.Request.Context(), claimsFromContext(c), roomFromPath(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

// Reply godoc
// @Summary Reply to a message
// @Tags Chat
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /chat/{department}/messages/{id}/replies [post]
// @Security BearerAuth
func (h *ChatHandler) Reply(c *gin.Context) {
	var req chatTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reply payload"))
		return
	}

	msg, err := h.service.Reply(c.Request.Context(), claimsFromContext(c), roomFromPath(c), c.Param("id"), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

type reactRequest struct {
	Reaction string `json:"reaction"`
}

// React godoc
// @Summary Toggle a reaction
// @Tags Chat
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /chat/{department}/messages/{id}/reactions [post]
// @Security BearerAuth
func (h *ChatHandler) React(c *gin.Context) {
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reaction payload"))
		return
	}

	msg, err := h.service.React(c.Request.Context(), claimsFromContext(c), roomFromPath(c), c.Param("id"), req.Reaction)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

type seenRequest struct {
	IDs []string `json:"ids"`
}

// MarkSeen godoc
// @Summary Mark messages as seen
// @Tags Chat
// @Accept json
// @Success 204 "No Content"
// @Router /chat/{department}/seen [post]
// @Security BearerAuth
func (h *ChatHandler) MarkSeen(c *gin.Context) {
	var req seenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid seen payload"))
		return
	}

	if err := h.service.MarkSeen(c.Request.Context(), claimsFromContext(c), roomFromPath(c), req.IDs); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
