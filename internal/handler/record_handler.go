package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TPI-Manager/TPI-Manager/internal/service"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
	"github.com/TPI-Manager/TPI-Manager/pkg/response"
)

// RecordHandler serves one record collection. Scoped collections (events,
// schedules) take /:department/:semester/:shift path segments; the global
// announcements collection takes none.
type RecordHandler struct {
	service *service.RecordService
	scoped  bool
	name    string
}

// NewRecordHandler creates a new handler for one record collection.
func NewRecordHandler(svc *service.RecordService, scoped bool, name string) *RecordHandler {
	return &RecordHandler{service: svc, scoped: scoped, name: name}
}

// Register mounts the collection's routes on the group.
func (h *RecordHandler) Register(g *gin.RouterGroup) {
	if h.scoped {
		g.GET("/:department/:semester/:shift", h.List)
		g.GET("/:department/:semester/:shift/export", h.Export)
		g.POST("", h.Create)
		g.PUT("/:department/:semester/:shift/:id", h.Update)
		g.DELETE("/:department/:semester/:shift/:id", h.Delete)
		return
	}
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *RecordHandler) pathScope(c *gin.Context) (department, semester, shift string) {
	if !h.scoped {
		return "", "", ""
	}
	return c.Param("department"), c.Param("semester"), c.Param("shift")
}

// List godoc
// @Summary List records with derived status
// @Tags Records
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /{collection}/{department}/{semester}/{shift} [get]
// @Security BearerAuth
func (h *RecordHandler) List(c *gin.Context) {
	department, semester, shift := h.pathScope(c)
	records, err := h.service.List(c.Request.Context(), department, semester, shift)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Create godoc
// @Summary Publish a record
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body service.CreateRecordRequest true "Record payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /{collection} [post]
// @Security BearerAuth
func (h *RecordHandler) Create(c *gin.Context) {
	var req service.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}

	rec, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rec)
}

// Update godoc
// @Summary Update a record
// @Tags Records
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /{collection}/{department}/{semester}/{shift}/{id} [put]
// @Security BearerAuth
func (h *RecordHandler) Update(c *gin.Context) {
	var req service.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}

	department, semester, shift := h.pathScope(c)
	rec, err := h.service.Update(c.Request.Context(), claimsFromContext(c), department, semester, shift, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// Delete godoc
// @Summary Delete a record
// @Tags Records
// @Produce json
// @Success 204 "No Content"
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /{collection}/{department}/{semester}/{shift}/{id} [delete]
// @Security BearerAuth
func (h *RecordHandler) Delete(c *gin.Context) {
	department, semester, shift := h.pathScope(c)
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), department, semester, shift, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a scope's records as csv or pdf
// @Tags Records
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /{collection}/{department}/{semester}/{shift}/export [get]
// @Security BearerAuth
func (h *RecordHandler) Export(c *gin.Context) {
	department, semester, shift := h.pathScope(c)
	format := c.DefaultQuery("format", "csv")

	out, contentType, err := h.service.Export(c.Request.Context(), department, semester, shift, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("%s-%s-%s-%s.%s", h.name, department, semester, shift, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, out)
}
