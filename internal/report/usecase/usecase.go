package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/pkg/logger"
	"github.com/posware/stock-ledger-service/internal/report"
	"github.com/posware/stock-ledger-service/internal/report/dto"
	"github.com/posware/stock-ledger-service/internal/stock"
	stockdto "github.com/posware/stock-ledger-service/internal/stock/dto"
)

type reportUseCase struct {
	stockRepo stock.Repository
	logger    logger.ZapLogger
}

func NewReportUseCase(stockRepo stock.Repository, log logger.ZapLogger) report.UseCase {
	return &reportUseCase{
		stockRepo: stockRepo,
		logger:    log,
	}
}

func (uc *reportUseCase) WeightedAverageCost(ctx context.Context, stockID string) (*decimal.Decimal, error) {
	return uc.stockRepo.WeightedAverageCost(ctx, stockID)
}

// Valuation prices every record holding stock at its weighted average cost.
// Records that were never received with a cost value at zero rather than
// being dropped, so the item count still reflects physical inventory.
func (uc *reportUseCase) Valuation(ctx context.Context, storeID *string) (*dto.ValuationReport, error) {
	records, err := uc.stockRepo.FindForValuation(ctx, storeID)
	if err != nil {
		return nil, err
	}

	rep := &dto.ValuationReport{
		GeneratedAt: time.Now().UTC(),
		TotalValue:  decimal.Zero,
	}

	for i := range records {
		rec := &records[i]
		if rec.Quantity.LessThanOrEqual(decimal.Zero) {
			continue
		}

		unitCost := decimal.Zero
		wac, err := uc.stockRepo.WeightedAverageCost(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		if wac != nil {
			unitCost = *wac
		}

		totalValue := rec.Quantity.Mul(unitCost)
		rep.TotalValue = rep.TotalValue.Add(totalValue)
		rep.Items = append(rep.Items, dto.ValuationItem{
			StockID:    rec.ID,
			StoreID:    rec.StoreID,
			ProductID:  rec.ProductID,
			VariantID:  rec.VariantID,
			Quantity:   rec.Quantity,
			UnitCost:   unitCost,
			TotalValue: totalValue,
		})
	}
	rep.TotalItems = len(rep.Items)
	return rep, nil
}

func (uc *reportUseCase) ListLowStock(ctx context.Context, storeID *string, page, pageSize int) ([]model.StockRecord, int, error) {
	return uc.stockRepo.FindAll(ctx, &stockdto.StockFilters{
		StoreID:      storeID,
		LowStockOnly: true,
		Page:         page,
		PageSize:     pageSize,
	})
}
