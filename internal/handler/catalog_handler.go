package handler

import (
	"net/http"
	"voiceorder-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListCompanies returns all companies from the external catalog
func ListCompanies(c echo.Context) error {
	log := logger.FromContext(c)

	companies, err := catalogClient.ListCompanies(c.Request().Context())
	if err != nil {
		log.Error("Failed to fetch companies", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
	}

	log.Info("Companies retrieved", zap.Int("count", len(companies)))
	return c.JSON(http.StatusOK, companies)
}

// ListCompanyProducts returns the live product catalog for a company
func ListCompanyProducts(c echo.Context) error {
	log := logger.FromContext(c)
	companyID := c.Param("id")

	products, err := catalogClient.ListProducts(c.Request().Context(), companyID)
	if err != nil {
		log.Error("Failed to fetch products",
			zap.String("company_id", companyID),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
	}

	log.Info("Products retrieved",
		zap.String("company_id", companyID),
		zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}
