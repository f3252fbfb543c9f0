package dto

import "github.com/shopspring/decimal"

type InitializeStockInput struct {
	StoreID   string
	ProductID *string
	VariantID *string
}

// ApplyMovementInput describes one committed stock change. Quantity is a
// positive magnitude; the movement type determines the sign applied to the
// on-hand balance. ExpectedVersion is the version the caller read; a stale
// value surfaces as model.ErrOptimisticLock and the caller decides whether
// to re-read and retry.
type ApplyMovementInput struct {
	StockID         string
	MovementType    string
	Quantity        decimal.Decimal
	UnitCost        *decimal.Decimal
	Reason          string
	ReferenceType   string
	ReferenceID     string
	ActorID         string
	ExpectedVersion int
}

type SetThresholdsInput struct {
	StockID         string
	MinStockLevel   decimal.Decimal
	MaxStockLevel   *decimal.Decimal
	ExpectedVersion int
}
