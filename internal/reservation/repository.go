package reservation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/reservation/dto"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	FindAll(ctx context.Context, filters *dto.ReservationFilters) ([]model.Reservation, int, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)
	SumPendingByStock(ctx context.Context, stockID string) (decimal.Decimal, error)

	// CreateWithStock inserts the pending reservation and performs the
	// version-guarded stock write in one transaction, keeping the
	// sum-of-pending == reserved_quantity invariant atomic.
	CreateWithStock(ctx context.Context, res *model.Reservation, rec *model.StockRecord, expectedVersion int) error

	// FinalizeWithStock transitions the reservation out of Pending, applies
	// the guarded stock write, and (when mv is non-nil) appends the ledger
	// entry, all in one transaction. The transition is conditioned on the
	// status still being Pending: claimed == false means another writer
	// finalized the reservation first and nothing was changed. A version
	// mismatch on the stock row rolls the whole transaction back with
	// model.ErrOptimisticLock.
	FinalizeWithStock(ctx context.Context, reservationID string, to model.ReservationStatus, rec *model.StockRecord, expectedVersion int, mv *model.Movement) (claimed bool, err error)
}
