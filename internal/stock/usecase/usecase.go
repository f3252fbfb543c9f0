package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/pkg/cache"
	"github.com/posware/stock-ledger-service/internal/pkg/logger"
	"github.com/posware/stock-ledger-service/internal/stock"
	"github.com/posware/stock-ledger-service/internal/stock/dto"
)

type stockUseCase struct {
	repo     stock.Repository
	products stock.ProductDirectory
	cache    *cache.RedisClient
	cacheTTL time.Duration
	logger   logger.ZapLogger
}

func NewStockUseCase(repo stock.Repository, products stock.ProductDirectory, c *cache.RedisClient, cacheTTL time.Duration, log logger.ZapLogger) stock.UseCase {
	return &stockUseCase{
		repo:     repo,
		products: products,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

func stockCacheKey(stockID string) string {
	return fmt.Sprintf("stock:%s", stockID)
}

func (uc *stockUseCase) InitializeStock(ctx context.Context, input *dto.InitializeStockInput) (*model.StockRecord, error) {
	rec, err := model.NewStockRecord(input.StoreID, input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}

	// The item must exist in the catalog before it can be stocked.
	if input.ProductID != nil {
		exists, err := uc.products.ProductExists(ctx, *input.ProductID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, model.ErrProductNotFound
		}
		if _, err := uc.repo.GetByStoreAndProduct(ctx, input.StoreID, *input.ProductID); err == nil {
			return nil, model.ErrStockExists
		} else if !errors.Is(err, model.ErrStockNotFound) {
			return nil, err
		}
	} else {
		exists, err := uc.products.VariantExists(ctx, *input.VariantID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, model.ErrVariantNotFound
		}
		if _, err := uc.repo.GetByStoreAndVariant(ctx, input.StoreID, *input.VariantID); err == nil {
			return nil, model.ErrStockExists
		} else if !errors.Is(err, model.ErrStockNotFound) {
			return nil, err
		}
	}

	if err := uc.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (uc *stockUseCase) GetStock(ctx context.Context, stockID string) (*model.StockRecord, error) {
	if uc.cache != nil {
		var cached model.StockRecord
		if err := uc.cache.GetJSON(ctx, stockCacheKey(stockID), &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			uc.logger.Warn("stock cache read failed", zap.String("stock_id", stockID), zap.Error(err))
		}
	}

	rec, err := uc.repo.GetByID(ctx, stockID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.SetJSON(ctx, stockCacheKey(stockID), rec, uc.cacheTTL); err != nil {
			uc.logger.Warn("stock cache write failed", zap.String("stock_id", stockID), zap.Error(err))
		}
	}
	return rec, nil
}

func (uc *stockUseCase) ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockRecord, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

// ApplyMovement is the single mutation point for committed stock changes:
// it applies the signed delta under the version guard and appends the
// Kardex entry in the same transaction. Reservation and release movement
// types never enter here; holds only touch reserved_quantity and are the
// reservation manager's business.
func (uc *stockUseCase) ApplyMovement(ctx context.Context, input *dto.ApplyMovementInput) (*model.Movement, error) {
	mt, err := model.ParseMovementType(input.MovementType)
	if err != nil {
		return nil, err
	}
	if mt == model.MovementReservation || mt == model.MovementRelease {
		return nil, model.ErrInvalidMovementType
	}
	if input.Quantity.LessThanOrEqual(decimal.Zero) && mt != model.MovementAdjustment {
		return nil, model.ErrInvalidQuantity
	}

	rec, err := uc.repo.GetByID(ctx, input.StockID)
	if err != nil {
		return nil, err
	}
	if input.ExpectedVersion != 0 && rec.Version != input.ExpectedVersion {
		return nil, model.ErrOptimisticLock
	}
	expectedVersion := rec.Version

	// Adjustments carry their own sign; every other type derives it.
	delta := input.Quantity
	if mt != model.MovementAdjustment {
		delta = mt.SignedQuantity(input.Quantity)
	}
	if err := rec.ApplyDelta(delta); err != nil {
		if errors.Is(err, model.ErrNegativeStock) {
			// Indicates a caller bug or an unguarded race upstream.
			uc.logger.Error("movement would drive stock negative",
				zap.String("stock_id", input.StockID),
				zap.String("movement_type", string(mt)),
				zap.String("quantity", input.Quantity.String()),
			)
		}
		return nil, err
	}
	rec.BumpVersion()

	mv := model.NewMovement(
		rec.ID, mt, delta, input.UnitCost, rec.Quantity,
		optional(input.ReferenceType), optional(input.ReferenceID), optional(input.ActorID),
	)
	if input.Reason != "" {
		reason := input.Reason
		mv.Reason = &reason
	}

	if err := uc.repo.UpdateWithVersionAndMovement(ctx, rec, expectedVersion, mv); err != nil {
		return nil, err
	}
	uc.invalidate(ctx, rec.ID)
	return mv, nil
}

func (uc *stockUseCase) SetThresholds(ctx context.Context, input *dto.SetThresholdsInput) (*model.StockRecord, error) {
	rec, err := uc.repo.GetByID(ctx, input.StockID)
	if err != nil {
		return nil, err
	}
	if input.ExpectedVersion != 0 && rec.Version != input.ExpectedVersion {
		return nil, model.ErrOptimisticLock
	}
	expectedVersion := rec.Version

	rec.SetThresholds(input.MinStockLevel, input.MaxStockLevel)
	rec.BumpVersion()

	if err := uc.repo.UpdateWithVersion(ctx, rec, expectedVersion); err != nil {
		return nil, err
	}
	uc.invalidate(ctx, rec.ID)
	return rec, nil
}

func (uc *stockUseCase) GetStockHistory(ctx context.Context, query *dto.StockHistoryQuery) (*dto.StockHistory, error) {
	rec, err := uc.repo.GetByID(ctx, query.StockID)
	if err != nil {
		return nil, err
	}

	movements, total, err := uc.repo.ListMovements(ctx, &dto.MovementFilters{
		StockID:   query.StockID,
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
		Page:      query.Page,
		PageSize:  query.PageSize,
	})
	if err != nil {
		return nil, err
	}

	wac, err := uc.repo.WeightedAverageCost(ctx, query.StockID)
	if err != nil {
		return nil, err
	}

	return &dto.StockHistory{
		Stock:               rec,
		Movements:           movements,
		TotalMovements:      total,
		WeightedAverageCost: wac,
	}, nil
}

func (uc *stockUseCase) invalidate(ctx context.Context, stockID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, stockCacheKey(stockID)); err != nil {
		uc.logger.Warn("stock cache invalidation failed", zap.String("stock_id", stockID), zap.Error(err))
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
