package order

import (
	"testing"
	"voiceorder-service/internal/catalog"
	"voiceorder-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateItemsCatalogPriceWins(t *testing.T) {
	products := []catalog.Product{
		{Name: "Elbow", Size: `1/2"`, Price: 50},
		{Name: "Elbow", Size: `3/4"`, Price: 70},
	}
	items := []extractedItem{
		{Name: "Elbow", Size: `1/2"`, Price: 45, Quantity: 10, Unit: "adad", Confidence: model.ConfidenceHigh},
	}

	validated := validateItems(7, products, items)
	require.Len(t, validated, 1)

	assert.EqualValues(t, 7, validated[0].OrderID)
	assert.Equal(t, 50.0, validated[0].CatalogPrice)
	assert.Equal(t, 45.0, validated[0].LLMPrice)
	assert.Equal(t, 10.0, validated[0].Quantity)
}

func TestValidateItemsModelPriceFallback(t *testing.T) {
	products := []catalog.Product{
		{Name: "Elbow", Size: `1/2"`, Price: 50},
	}
	items := []extractedItem{
		// Size not in the catalog, so there is no price to override with
		{Name: "Elbow", Size: `2"`, Price: 120, Quantity: 2},
	}

	validated := validateItems(1, products, items)
	require.Len(t, validated, 1)

	assert.Equal(t, 120.0, validated[0].CatalogPrice)
	assert.Equal(t, 120.0, validated[0].LLMPrice)
}

func TestValidateItemsDefaults(t *testing.T) {
	items := []extractedItem{
		{Name: "P-trap", Size: `4"`, Price: 300, Quantity: 1},
	}

	validated := validateItems(1, nil, items)
	require.Len(t, validated, 1)

	assert.Equal(t, "adad", validated[0].Unit)
	assert.Equal(t, model.ConfidenceMedium, validated[0].Confidence)
}

func TestValidateItemsEmptyInput(t *testing.T) {
	validated := validateItems(1, nil, nil)
	assert.NotNil(t, validated)
	assert.Empty(t, validated)
}

func TestBuildPriceIndexKeyedByNameAndSize(t *testing.T) {
	products := []catalog.Product{
		{Name: "UPVC Pipe SCH-40", Size: `1"`, Price: 850},
		{Name: "UPVC Pipe SCH-40", Size: `2"`, Price: 1650},
	}

	index := buildPriceIndex(products)
	assert.Equal(t, 850.0, index[`UPVC Pipe SCH-40|||1"`])
	assert.Equal(t, 1650.0, index[`UPVC Pipe SCH-40|||2"`])
	_, ok := index[`UPVC Pipe SCH-40|||3"`]
	assert.False(t, ok)
}

func TestSerializeCatalog(t *testing.T) {
	products := []catalog.Product{
		{Name: "Elbow", Size: `1/2"`, Price: 50},
		{Name: "Tee", Size: `3/4"`, Price: 72.5},
	}

	assert.Equal(t, "Elbow|1/2\"|50\nTee|3/4\"|72.5", serializeCatalog(products))
	assert.Equal(t, "", serializeCatalog(nil))
}

func TestDetectMediaType(t *testing.T) {
	oggMagic := append([]byte("OggS"), make([]byte, 32)...)

	// Transfer header wins when it names a real type
	assert.Equal(t, "audio/ogg", detectMediaType("audio/ogg; codecs=opus", []byte("xx")))

	// Sniff the payload when the header is missing or generic
	assert.Equal(t, "application/ogg", detectMediaType("", oggMagic))
	assert.Equal(t, "application/ogg", detectMediaType("application/octet-stream", oggMagic))
}
