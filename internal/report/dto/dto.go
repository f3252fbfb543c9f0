package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type ValuationItem struct {
	StockID    string
	StoreID    string
	ProductID  *string
	VariantID  *string
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal // weighted average; zero when never costed
	TotalValue decimal.Decimal
}

type ValuationReport struct {
	Items       []ValuationItem
	TotalItems  int
	TotalValue  decimal.Decimal
	GeneratedAt time.Time
}
