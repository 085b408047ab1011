package handler

import (
	"errors"
	"net/http"
	"voiceorder-service/internal/blob"
	"voiceorder-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ServeAudio streams a stored audio clip. Only available with the local
// blob backend; GCS objects are fetched from their public URL directly.
func ServeAudio(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	local, ok := blobStore.(*blob.LocalStore)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "audio not found"})
	}

	r, contentType, err := local.Open(id)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "audio not found"})
		}
		log.Error("Failed to open audio blob", zap.String("audio_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read audio"})
	}
	defer r.Close()

	return c.Stream(http.StatusOK, contentType, r)
}
