package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TPI-Manager/TPI-Manager/internal/service"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
	"github.com/TPI-Manager/TPI-Manager/pkg/response"
)

// ExportHandler hands out signed export links and serves the downloads.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// CreateLink godoc
// @Summary Create a signed export download link
// @Tags Exports
// @Produce json
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope
// @Router /exports/{collection}/{department}/{semester}/{shift} [post]
// @Security BearerAuth
func (h *ExportHandler) CreateLink(c *gin.Context) {
	link, err := h.service.CreateLink(
		c.Request.Context(),
		c.Param("collection"),
		c.Param("department"),
		c.Param("semester"),
		c.Param("shift"),
		c.DefaultQuery("format", "csv"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download an export by signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	path, err := h.service.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.File(path)
}
