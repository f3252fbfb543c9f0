package stock

import (
	"context"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/stock/dto"
)

type UseCase interface {
	InitializeStock(ctx context.Context, input *dto.InitializeStockInput) (*model.StockRecord, error)
	GetStock(ctx context.Context, stockID string) (*model.StockRecord, error)
	ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockRecord, int, error)
	ApplyMovement(ctx context.Context, input *dto.ApplyMovementInput) (*model.Movement, error)
	SetThresholds(ctx context.Context, input *dto.SetThresholdsInput) (*model.StockRecord, error)
	GetStockHistory(ctx context.Context, query *dto.StockHistoryQuery) (*dto.StockHistory, error)
}
