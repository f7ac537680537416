package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/anonto42/niche-communities/backend/pkg/media"
	"github.com/labstack/echo/v4"
)

// ImageUploader stores an image and returns its public URL
type ImageUploader interface {
	Upload(ctx context.Context, r io.Reader, ownerID string) (string, error)
}

// UploadHandler accepts images for community and profile photos
type UploadHandler struct {
	uploader ImageUploader
}

// NewUploadHandler creates an UploadHandler; a nil uploader disables uploads
func NewUploadHandler(uploader ImageUploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

func (h *UploadHandler) RegisterUploadRoutes(g *echo.Group) {
	g.POST("/uploads/image", h.UploadImage)
}

// UploadImage reads the multipart "file" field
func (h *UploadHandler) UploadImage(c echo.Context) error {
	if h.uploader == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Image uploads are not configured")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file")
	}
	if fh.Size > media.MaxImageSize {
		return httpError(c, media.ErrImageTooLarge)
	}
	file, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable file")
	}
	defer file.Close()

	url, err := h.uploader.Upload(c.Request().Context(), file, getUserIDFromContext(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"url": url})
}
