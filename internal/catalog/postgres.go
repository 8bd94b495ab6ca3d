// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"rfp-workers/internal/common/errors"
	"rfp-workers/internal/models"
)

// LoadFromPostgres reads the catalog and test-pricing snapshots from
// the products and test_pricing tables.
func LoadFromPostgres(ctx context.Context, db *sql.DB) (*Snapshot, error) {
	products, err := loadProductsPostgres(ctx, db)
	if err != nil {
		return nil, errors.NewCatalogLoadFailedError(err)
	}

	pricing, err := loadTestPricingPostgres(ctx, db)
	if err != nil {
		return nil, errors.NewCatalogLoadFailedError(err)
	}

	return NewSnapshot(products, pricing), nil
}

func loadProductsPostgres(ctx context.Context, db *sql.DB) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT sku, name, category, price_per_km, specs FROM products ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var specsJSON []byte
		if err := rows.Scan(&p.SKU, &p.Name, &p.Category, &p.PricePerKM, &specsJSON); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		if len(specsJSON) > 0 {
			if err := json.Unmarshal(specsJSON, &p.Specs); err != nil {
				return nil, fmt.Errorf("parse specs for %s: %w", p.SKU, err)
			}
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func loadTestPricingPostgres(ctx context.Context, db *sql.DB) (map[string]float64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT test_name, cost FROM test_pricing`)
	if err != nil {
		return nil, fmt.Errorf("query test pricing: %w", err)
	}
	defer rows.Close()

	pricing := make(map[string]float64)
	for rows.Next() {
		var name string
		var cost float64
		if err := rows.Scan(&name, &cost); err != nil {
			return nil, fmt.Errorf("scan test pricing row: %w", err)
		}
		pricing[name] = cost
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test pricing rows: %w", err)
	}
	return pricing, nil
}
