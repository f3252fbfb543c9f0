package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/posware/stock-ledger-service/internal/model"
)

type StockFilters struct {
	StoreID      *string
	ProductID    string
	VariantID    string
	LowStockOnly bool
	Page         int
	PageSize     int
}

type MovementFilters struct {
	StockID      string
	MovementType string
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}

type StockHistoryQuery struct {
	StockID   string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// StockHistory bundles a record's current state with a page of its Kardex
// and the weighted average cost derived from it.
type StockHistory struct {
	Stock               *model.StockRecord
	Movements           []model.Movement
	TotalMovements      int
	WeightedAverageCost *decimal.Decimal
}
