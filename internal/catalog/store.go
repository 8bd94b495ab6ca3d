// internal/catalog/store.go

// Package catalog loads and serves the read-only product catalog and the
// test-pricing table. Snapshots are loaded once at process start; the
// workflow never mutates them.
package catalog

import "rfp-workers/internal/models"

// Store provides read access to the catalog snapshot.
type Store interface {
	// Products returns all catalog entries in stable catalog order.
	Products() []models.Product
	// TestPricing maps test name to cost. Unknown tests are simply absent.
	TestPricing() map[string]float64
}

// Snapshot is an immutable in-memory Store.
type Snapshot struct {
	products    []models.Product
	testPricing map[string]float64
}

func NewSnapshot(products []models.Product, testPricing map[string]float64) *Snapshot {
	if testPricing == nil {
		testPricing = map[string]float64{}
	}
	return &Snapshot{products: products, testPricing: testPricing}
}

func (s *Snapshot) Products() []models.Product {
	return s.products
}

func (s *Snapshot) TestPricing() map[string]float64 {
	return s.testPricing
}
