package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TPI-Manager/TPI-Manager/internal/service"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
	"github.com/TPI-Manager/TPI-Manager/pkg/response"
)

// AskHandler wires the Q&A board endpoints.
type AskHandler struct {
	service *service.AskService
}

// NewAskHandler creates a new handler.
func NewAskHandler(svc *service.AskService) *AskHandler {
	return &AskHandler{service: svc}
}

// Register mounts the ask routes on the group.
func (h *AskHandler) Register(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.GET("/:department", h.List)
	g.POST("", h.Ask)
	g.POST("/:department/questions/:id/answers", h.Answer)
	g.DELETE("/:department/questions/:id", h.Delete)
}

// List godoc
// @Summary List questions
// @Tags Ask
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ask/{department} [get]
// @Security BearerAuth
func (h *AskHandler) List(c *gin.Context) {
	questions, err := h.service.List(c.Request.Context(), claimsFromContext(c), c.Param("department"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, nil)
}

// Ask godoc
// @Summary Post a question
// @Tags Ask
// @Accept json
// @Produce json
// @Param payload body service.AskQuestionRequest true "Question payload"
// @Success 201 {object} response.Envelope
// @Router /ask [post]
// @Security BearerAuth
func (h *AskHandler) Ask(c *gin.Context) {
	var req service.AskQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid question payload"))
		return
	}

	q, err := h.service.Ask(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, q)
}

type answerRequest struct {
	Text string `json:"text"`
}

// Answer godoc
// @Summary Answer a question
// @Tags Ask
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /ask/{department}/questions/{id}/answers [post]
// @Security BearerAuth
func (h *AskHandler) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answer payload"))
		return
	}

	q, err := h.service.Answer(c.Request.Context(), claimsFromContext(c), c.Param("department"), c.Param("id"), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, q, nil)
}

// Delete godoc
// @Summary Delete a question
// @Tags Ask
// @Success 204 "No Content"
// @Failure 403 {object} response.Envelope
// @Router /ask/{department}/questions/{id} [delete]
// @Security BearerAuth
func (h *AskHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("department"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
