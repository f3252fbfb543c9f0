package stock

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/stock/dto"
)

type Repository interface {
	// Stock records
	Create(ctx context.Context, rec *model.StockRecord) error
	GetByID(ctx context.Context, id string) (*model.StockRecord, error)
	GetByStoreAndProduct(ctx context.Context, storeID, productID string) (*model.StockRecord, error)
	GetByStoreAndVariant(ctx context.Context, storeID, variantID string) (*model.StockRecord, error)
	FindAll(ctx context.Context, filters *dto.StockFilters) ([]model.StockRecord, int, error)
	FindForValuation(ctx context.Context, storeID *string) ([]model.StockRecord, error)

	// Guarded writes. Both condition on the stored version matching
	// expectedVersion and report model.ErrOptimisticLock when it does not.
	UpdateWithVersion(ctx context.Context, rec *model.StockRecord, expectedVersion int) error
	UpdateWithVersionAndMovement(ctx context.Context, rec *model.StockRecord, expectedVersion int, mv *model.Movement) error

	// Movement ledger
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, int, error)
	WeightedAverageCost(ctx context.Context, stockID string) (*decimal.Decimal, error)
}

// ProductDirectory is the outbound collaborator used to check that a product
// or variant exists before a stock record is created for it. Existence check
// only; the ledger never mutates the catalog.
type ProductDirectory interface {
	ProductExists(ctx context.Context, productID string) (bool, error)
	VariantExists(ctx context.Context, variantID string) (bool, error)
}
