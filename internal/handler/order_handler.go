package handler

import (
	"context"
	"net/http"
	"strconv"
	"voiceorder-service/internal/model"
	"voiceorder-service/pkg/database"
	"voiceorder-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateOrderRequest defines the structure for order submission
type CreateOrderRequest struct {
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	AudioID     string `json:"audio_id"`
}

// OrderDetails is an order with its child records and resolved audio URL
type OrderDetails struct {
	model.Order
	Items     []model.OrderItem     `json:"items"`
	Unmatched []model.UnmatchedItem `json:"unmatched"`
	AudioURL  string                `json:"audio_url,omitempty"`
}

// UploadAudio stores an uploaded audio clip and returns its identifier
func UploadAudio(c echo.Context) error {
	log := logger.FromContext(c)

	file, err := c.FormFile("audio")
	if err == nil {
		src, err := file.Open()
		if err != nil {
			log.Error("Failed to open uploaded file", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid audio upload"})
		}
		defer src.Close()

		id, err := blobStore.Put(c.Request().Context(), src, file.Header.Get("Content-Type"))
		if err != nil {
			log.Error("Failed to store audio", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store audio"})
		}

		log.Info("Audio uploaded", zap.String("audio_id", id), zap.Int64("size", file.Size))
		return c.JSON(http.StatusCreated, echo.Map{"audio_id": id})
	}

	// Fall back to a raw body upload
	id, err := blobStore.Put(c.Request().Context(), c.Request().Body, c.Request().Header.Get("Content-Type"))
	if err != nil {
		log.Error("Failed to store audio", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store audio"})
	}

	log.Info("Audio uploaded", zap.String("audio_id", id))
	return c.JSON(http.StatusCreated, echo.Map{"audio_id": id})
}

// CreateOrder creates a new order and triggers async processing
func CreateOrder(c echo.Context) error {
	log := logger.FromContext(c)

	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	if req.CompanyID == "" || req.AudioID == "" {
		log.Warn("Incomplete order request",
			zap.String("company_id", req.CompanyID),
			zap.String("audio_id", req.AudioID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "company_id and audio_id are required"})
	}

	ord := model.Order{
		CompanyID:   req.CompanyID,
		CompanyName: req.CompanyName,
		AudioID:     req.AudioID,
		Status:      model.OrderStatusProcessing,
	}
	if result := database.GetDB().Create(&ord); result.Error != nil {
		log.Error("Failed to create order", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
	}

	// Process asynchronously; the pipeline owns its own timeout and writes
	// the terminal state itself
	go pipeline.Process(context.Background(), ord.ID)

	log.Info("Order created",
		zap.Uint("order_id", ord.ID),
		zap.String("company_id", ord.CompanyID))
	return c.JSON(http.StatusCreated, ord)
}

// ListOrders returns recent orders, optionally filtered by company
func ListOrders(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB().Order("created_at desc").Limit(50)
	if companyID := c.QueryParam("company_id"); companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}

	var orders []model.Order
	if result := query.Find(&orders); result.Error != nil {
		log.Error("Failed to list orders", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve orders"})
	}

	return c.JSON(http.StatusOK, orders)
}

// GetOrder returns one order with its items and unmatched phrases
func GetOrder(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	var ord model.Order
	if result := database.GetDB().First(&ord, id); result.Error != nil {
		log.Error("Order not found", zap.Uint64("order_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}

	details, err := loadOrderDetails(c, ord)
	if err != nil {
		log.Error("Failed to load order details", zap.Uint64("order_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve order"})
	}

	return c.JSON(http.StatusOK, details)
}

// ListOrdersWithDetails returns recent orders with items, unmatched phrases
// and resolved audio URLs
func ListOrdersWithDetails(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB().Order("created_at desc").Limit(50)
	if companyID := c.QueryParam("company_id"); companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}

	var orders []model.Order
	if result := query.Find(&orders); result.Error != nil {
		log.Error("Failed to list orders", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve orders"})
	}

	results := make([]OrderDetails, 0, len(orders))
	for _, ord := range orders {
		details, err := loadOrderDetails(c, ord)
		if err != nil {
			log.Error("Failed to load order details", zap.Uint("order_id", ord.ID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve orders"})
		}
		results = append(results, details)
	}

	return c.JSON(http.StatusOK, results)
}

func loadOrderDetails(c echo.Context, ord model.Order) (OrderDetails, error) {
	details := OrderDetails{Order: ord}

	if result := database.GetDB().Where("order_id = ?", ord.ID).Find(&details.Items); result.Error != nil {
		return details, result.Error
	}
	if result := database.GetDB().Where("order_id = ?", ord.ID).Find(&details.Unmatched); result.Error != nil {
		return details, result.Error
	}
	if details.Items == nil {
		details.Items = []model.OrderItem{}
	}
	if details.Unmatched == nil {
		details.Unmatched = []model.UnmatchedItem{}
	}

	// Best effort; a missing blob just leaves the URL empty
	if url, err := blobStore.URL(c.Request().Context(), ord.AudioID); err == nil {
		details.AudioURL = url
	}

	return details, nil
}
