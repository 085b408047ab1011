package handler

import (
	"errors"
	"net/http"
	"strconv"
	"voiceorder-service/internal/model"
	"voiceorder-service/internal/prompt"
	"voiceorder-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CorrectionRequest defines the structure for correction submissions
type CorrectionRequest struct {
	OrderID     *uint  `json:"order_id,omitempty"`
	Type        string `json:"type"`
	TermHeard   string `json:"term_heard"`
	TermMeaning string `json:"term_meaning"`
	CompanyID   string `json:"company_id,omitempty"`
}

func validCorrectionType(t string) bool {
	switch t {
	case model.CorrectionTypeTeachTerm, model.CorrectionTypeWrongMatch, model.CorrectionTypeManualTerm:
		return true
	}
	return false
}

// AddCorrection records a new pending terminology correction
func AddCorrection(c echo.Context) error {
	log := logger.FromContext(c)

	var req CorrectionRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	if !validCorrectionType(req.Type) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid correction type"})
	}
	if req.TermHeard == "" || req.TermMeaning == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "term_heard and term_meaning are required"})
	}

	correction := model.Correction{
		OrderID:     req.OrderID,
		Type:        req.Type,
		TermHeard:   req.TermHeard,
		TermMeaning: req.TermMeaning,
		CompanyID:   req.CompanyID,
	}
	if err := promptStore.AddCorrection(&correction); err != nil {
		log.Error("Failed to add correction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add correction"})
	}

	log.Info("Correction added",
		zap.Uint("correction_id", correction.ID),
		zap.String("type", correction.Type),
		zap.String("term_heard", correction.TermHeard))
	return c.JSON(http.StatusCreated, correction)
}

// ListCorrections returns corrections, newest first
func ListCorrections(c echo.Context) error {
	log := logger.FromContext(c)

	corrections, err := promptStore.AllCorrections(100)
	if err != nil {
		log.Error("Failed to list corrections", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve corrections"})
	}

	return c.JSON(http.StatusOK, corrections)
}

// ListPendingCorrections returns corrections waiting to be applied
func ListPendingCorrections(c echo.Context) error {
	log := logger.FromContext(c)

	corrections, err := promptStore.PendingCorrections()
	if err != nil {
		log.Error("Failed to list pending corrections", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve corrections"})
	}

	return c.JSON(http.StatusOK, corrections)
}

// ListOrderCorrections returns corrections recorded against an order
func ListOrderCorrections(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	corrections, err := promptStore.CorrectionsByOrder(uint(id))
	if err != nil {
		log.Error("Failed to list order corrections", zap.Uint64("order_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve corrections"})
	}

	return c.JSON(http.StatusOK, corrections)
}

// RejectCorrection marks a pending correction rejected
func RejectCorrection(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid correction id"})
	}

	if err := promptStore.RejectCorrection(uint(id)); err != nil {
		if errors.Is(err, prompt.ErrCorrectionNotPending) {
			log.Warn("Correction rejection refused", zap.Uint64("correction_id", id))
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		log.Error("Failed to reject correction", zap.Uint64("correction_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reject correction"})
	}

	log.Info("Correction rejected", zap.Uint64("correction_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "correction rejected"})
}
