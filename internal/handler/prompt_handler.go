package handler

import (
	"errors"
	"net/http"
	"voiceorder-service/internal/prompt"
	"voiceorder-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// GetActivePrompt returns the currently active prompt version, or null when
// nothing has been seeded yet
func GetActivePrompt(c echo.Context) error {
	log := logger.FromContext(c)

	active, err := promptStore.GetActive()
	if err != nil {
		log.Error("Failed to load active prompt", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load active prompt"})
	}

	return c.JSON(http.StatusOK, active)
}

// PromptHistory returns prompt versions, newest first
func PromptHistory(c echo.Context) error {
	log := logger.FromContext(c)

	versions, err := promptStore.History(50)
	if err != nil {
		log.Error("Failed to load prompt history", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load prompt history"})
	}

	return c.JSON(http.StatusOK, versions)
}

// SeedPrompt inserts the initial prompt version
func SeedPrompt(c echo.Context) error {
	log := logger.FromContext(c)

	version, err := promptStore.Seed()
	if err != nil {
		if errors.Is(err, prompt.ErrAlreadySeeded) {
			log.Warn("Prompt seed rejected, already seeded")
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		log.Error("Failed to seed prompt", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to seed prompt"})
	}

	log.Info("Prompt seeded", zap.Int("version", version.Version))
	return c.JSON(http.StatusCreated, version)
}

// RollbackPromptRequest identifies the version to roll back to
type RollbackPromptRequest struct {
	VersionID uint `json:"version_id"`
}

// RollbackPrompt appends a new active version carrying an archived
// version's text
func RollbackPrompt(c echo.Context) error {
	log := logger.FromContext(c)

	var req RollbackPromptRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	version, err := promptStore.Rollback(req.VersionID)
	if err != nil {
		if errors.Is(err, prompt.ErrVersionNotFound) {
			log.Warn("Rollback target not found", zap.Uint("version_id", req.VersionID))
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		log.Error("Failed to roll back prompt", zap.Uint("version_id", req.VersionID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to roll back prompt"})
	}

	log.Info("Prompt rolled back",
		zap.Uint("target_version_id", req.VersionID),
		zap.Int("new_version", version.Version))
	return c.JSON(http.StatusCreated, version)
}

// ApplyCorrections merges all pending corrections into a new prompt version
func ApplyCorrections(c echo.Context) error {
	log := logger.FromContext(c)

	version, err := promptImprover.ApplyCorrections(logger.WithContext(c.Request().Context(), log))
	if err != nil {
		switch {
		case errors.Is(err, prompt.ErrNoPendingCorrections), errors.Is(err, prompt.ErrNoActivePrompt):
			log.Warn("Apply corrections rejected", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		default:
			log.Error("Failed to apply corrections", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusCreated, version)
}
