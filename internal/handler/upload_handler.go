package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TPI-Manager/TPI-Manager/internal/service"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
	"github.com/TPI-Manager/TPI-Manager/pkg/response"
)

// UploadHandler serves image uploads and downloads.
type UploadHandler struct {
	service *service.UploadService
}

// NewUploadHandler creates a new handler.
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Register mounts the upload routes on the group.
func (h *UploadHandler) Register(g *gin.RouterGroup) {
	g.POST("", h.Upload)
	g.GET("/:name", h.Serve)
}

// Upload godoc
// @Summary Upload images
// @Description Store up to three images from a multipart form under the "files" field
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /uploads [post]
// @Security BearerAuth
func (h *UploadHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form"))
		return
	}

	names, err := h.service.Store(form.File["files"])
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"files": names})
}

// Serve godoc
// @Summary Download a stored image
// @Tags Uploads
// @Produce octet-stream
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /uploads/{name} [get]
// @Security BearerAuth
func (h *UploadHandler) Serve(c *gin.Context) {
	path, err := h.service.Open(c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.File(path)
}
