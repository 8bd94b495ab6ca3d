// internal/catalog/file.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"rfp-workers/internal/common/errors"
	"rfp-workers/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

const productsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["sku", "name", "price_per_km"],
		"properties": {
			"sku": {"type": "string", "minLength": 1},
			"name": {"type": "string", "minLength": 1},
			"category": {"type": "string"},
			"price_per_km": {"type": "number", "minimum": 0},
			"specs": {"type": "object"}
		}
	}
}`

const testPricingSchema = `{
	"type": "object",
	"additionalProperties": {"type": "number", "minimum": 0}
}`

// LoadFromFiles reads and validates the product catalog and test-pricing
// snapshots from JSON files.
func LoadFromFiles(productsPath, testPricingPath string) (*Snapshot, error) {
	products, err := loadProductsFile(productsPath)
	if err != nil {
		return nil, errors.NewCatalogLoadFailedError(err)
	}

	pricing, err := loadTestPricingFile(testPricingPath)
	if err != nil {
		return nil, errors.NewCatalogLoadFailedError(err)
	}

	return NewSnapshot(products, pricing), nil
}

func loadProductsFile(path string) ([]models.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products file: %w", err)
	}

	if err := validateJSON(productsSchema, data); err != nil {
		return nil, fmt.Errorf("products file %s: %w", path, err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse products file: %w", err)
	}
	return products, nil
}

func loadTestPricingFile(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test pricing file: %w", err)
	}

	if err := validateJSON(testPricingSchema, data); err != nil {
		return nil, fmt.Errorf("test pricing file %s: %w", path, err)
	}

	var pricing map[string]float64
	if err := json.Unmarshal(data, &pricing); err != nil {
		return nil, fmt.Errorf("parse test pricing file: %w", err)
	}
	return pricing, nil
}

func validateJSON(schema string, data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("schema validation failed: %s", result.Errors()[0].String())
	}
	return nil
}
