package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockRecord holds the current quantities for one product or variant at one
// store. Every mutation goes through a version-guarded write: the repository
// only persists the new state if the stored version still equals the version
// the caller read, and bumps it by one. The version field is therefore the
// compare-and-swap token for all concurrent writers.
//
// Invariants:
//   - exactly one of ProductID / VariantID is set
//   - Quantity >= 0, ReservedQuantity >= 0, ReservedQuantity <= Quantity
type StockRecord struct {
	ID               string           `db:"id"`
	StoreID          string           `db:"store_id"`
	ProductID        *string          `db:"product_id"`
	VariantID        *string          `db:"variant_id"`
	Quantity         decimal.Decimal  `db:"quantity"`
	ReservedQuantity decimal.Decimal  `db:"reserved_quantity"`
	Version          int              `db:"version"`
	MinStockLevel    decimal.Decimal  `db:"min_stock_level"`
	MaxStockLevel    *decimal.Decimal `db:"max_stock_level"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"`
}

// NewStockRecord creates a zero-quantity record for a store+item. Exactly one
// of productID / variantID must be non-nil.
func NewStockRecord(storeID string, productID, variantID *string) (*StockRecord, error) {
	if err := validateItemXOR(productID, variantID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &StockRecord{
		ID:               uuid.New().String(),
		StoreID:          storeID,
		ProductID:        productID,
		VariantID:        variantID,
		Quantity:         decimal.Zero,
		ReservedQuantity: decimal.Zero,
		Version:          1,
		MinStockLevel:    decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func validateItemXOR(productID, variantID *string) error {
	if (productID == nil) == (variantID == nil) {
		return ErrProductVariantXOR
	}
	return nil
}

// AvailableQuantity is always derived, never stored as independent truth.
func (s *StockRecord) AvailableQuantity() decimal.Decimal {
	return s.Quantity.Sub(s.ReservedQuantity)
}

// IsLowStock reports whether available quantity is at or below the minimum
// stock level threshold.
func (s *StockRecord) IsLowStock() bool {
	return s.AvailableQuantity().LessThanOrEqual(s.MinStockLevel)
}

// Reserve increases the held quantity. Fails if qty exceeds what is available.
func (s *StockRecord) Reserve(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}
	if qty.GreaterThan(s.AvailableQuantity()) {
		return ErrInsufficientStock
	}
	s.ReservedQuantity = s.ReservedQuantity.Add(qty)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Release gives back previously reserved quantity.
func (s *StockRecord) Release(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}
	if qty.GreaterThan(s.ReservedQuantity) {
		return ErrInvalidQuantity
	}
	s.ReservedQuantity = s.ReservedQuantity.Sub(qty)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyDelta changes on-hand quantity by delta (signed). The result must stay
// non-negative and must still cover the reserved quantity.
func (s *StockRecord) ApplyDelta(delta decimal.Decimal) error {
	newQty := s.Quantity.Add(delta)
	if newQty.IsNegative() {
		return ErrNegativeStock
	}
	if newQty.LessThan(s.ReservedQuantity) {
		return ErrReservedExceedsQuantity
	}
	s.Quantity = newQty
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// SetThresholds updates the min/max stock levels.
func (s *StockRecord) SetThresholds(min decimal.Decimal, max *decimal.Decimal) {
	s.MinStockLevel = min
	s.MaxStockLevel = max
	s.UpdatedAt = time.Now().UTC()
}

// BumpVersion advances the CAS token after a successful guarded write.
func (s *StockRecord) BumpVersion() {
	s.Version++
}
