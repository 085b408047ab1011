package order

import (
	"voiceorder-service/internal/catalog"
	"voiceorder-service/internal/model"
)

// extractionResult is the documented JSON schema the model must return.
type extractionResult struct {
	Transcript string               `json:"transcript"`
	Items      []extractedItem      `json:"items"`
	Unmatched  []extractedUnmatched `json:"unmatched"`
}

type extractedItem struct {
	Name       string  `json:"name"`
	Size       string  `json:"size"`
	Price      float64 `json:"price"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	Confidence string  `json:"confidence"`
	Notes      string  `json:"notes"`
}

type extractedUnmatched struct {
	Heard  string `json:"heard"`
	Reason string `json:"reason"`
}

// priceIndex maps (name, size) pairs to the live catalog price.
type priceIndex map[string]float64

func buildPriceIndex(products []catalog.Product) priceIndex {
	index := make(priceIndex, len(products))
	for _, p := range products {
		index[p.Name+"|||"+p.Size] = p.Price
	}
	return index
}

// validateItems applies the price-validation rule: when the (name, size)
// pair exists in the live catalog, the catalog price overrides the
// model-proposed price; the model price is kept separately for audit.
// When the pair is absent, the model price is the fallback.
func validateItems(orderID uint, products []catalog.Product, items []extractedItem) []model.OrderItem {
	index := buildPriceIndex(products)

	validated := make([]model.OrderItem, 0, len(items))
	for _, item := range items {
		catalogPrice := item.Price
		if price, ok := index[item.Name+"|||"+item.Size]; ok {
			catalogPrice = price
		}

		unit := item.Unit
		if unit == "" {
			unit = "adad"
		}
		confidence := item.Confidence
		if confidence == "" {
			confidence = model.ConfidenceMedium
		}

		validated = append(validated, model.OrderItem{
			OrderID:      orderID,
			Name:         item.Name,
			Size:         item.Size,
			CatalogPrice: catalogPrice,
			LLMPrice:     item.Price,
			Quantity:     item.Quantity,
			Unit:         unit,
			Confidence:   confidence,
			Notes:        item.Notes,
		})
	}
	return validated
}
