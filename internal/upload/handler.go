package upload

import (
	"net/http"

	"Sahaaya/internal/apperror"
	"Sahaaya/internal/auth"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

type UploadHandler struct {
	store  AssetStore
	gate   *auth.Gate
	logger *zap.Logger
}

func NewUploadHandler(store AssetStore, gate *auth.Gate, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{store: store, gate: gate, logger: logger}
}

// Upload stores the multipart "file" field and responds with its URL.
func (h *UploadHandler) Upload(c echo.Context) error {
	identity, _ := auth.CurrentIdentity(c)
	if err := h.gate.Require(identity, auth.ObjUpload, auth.ActWrite); err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperror.Validation("file is required")
	}
	if fileHeader.Size > maxUploadBytes {
		return apperror.Validation("file must be at most 10MB")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperror.Internal(err, "failed to read upload")
	}
	defer file.Close()

	url, err := h.store.Upload(c.Request().Context(), file, fileHeader.Filename)
	if err != nil {
		h.logger.Error("upload failed", zap.String("filename", fileHeader.Filename), zap.Error(err))
		return apperror.Internal(err, "failed to upload file")
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
