package report

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/report/dto"
)

// UseCase is the read-only costing and reporting surface. It never mutates;
// everything is derived from stock records and the movement ledger on demand.
type UseCase interface {
	WeightedAverageCost(ctx context.Context, stockID string) (*decimal.Decimal, error)
	Valuation(ctx context.Context, storeID *string) (*dto.ValuationReport, error)
	ListLowStock(ctx context.Context, storeID *string, page, pageSize int) ([]model.StockRecord, int, error)
}
