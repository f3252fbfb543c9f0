package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/pkg/logger"
	"github.com/posware/stock-ledger-service/internal/reservation"
	"github.com/posware/stock-ledger-service/internal/reservation/dto"
	"github.com/posware/stock-ledger-service/internal/stock"
)

// expireBatchSize bounds how many overdue reservations one sweep run picks
// up; anything left over is caught by the next tick.
const expireBatchSize = 200

const confirmReason = "reservation_confirmed"

type reservationUseCase struct {
	repo       reservation.Repository
	stockRepo  stock.Repository
	defaultTTL time.Duration
	logger     logger.ZapLogger
}

func NewReservationUseCase(repo reservation.Repository, stockRepo stock.Repository, defaultTTL time.Duration, log logger.ZapLogger) reservation.UseCase {
	return &reservationUseCase{
		repo:       repo,
		stockRepo:  stockRepo,
		defaultTTL: defaultTTL,
		logger:     log,
	}
}

// Reserve holds quantity against a stock record. The hold only reduces
// available quantity; on-hand stays untouched until the hold is confirmed.
// On a version conflict the caller re-reads and retries or aborts; no retry
// happens here.
func (uc *reservationUseCase) Reserve(ctx context.Context, input *dto.ReserveInput) (*model.Reservation, error) {
	rec, err := uc.stockRepo.GetByID(ctx, input.StockID)
	if err != nil {
		return nil, err
	}
	if input.ExpectedVersion != 0 && rec.Version != input.ExpectedVersion {
		return nil, model.ErrOptimisticLock
	}

	expiresAt := input.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(uc.defaultTTL)
	}

	res, err := model.NewReservation(rec.ID, input.ReferenceType, input.ReferenceID, input.Quantity, expiresAt)
	if err != nil {
		return nil, err
	}

	expectedVersion := rec.Version
	if err := rec.Reserve(input.Quantity); err != nil {
		return nil, err
	}
	rec.BumpVersion()

	if err := uc.repo.CreateWithStock(ctx, res, rec, expectedVersion); err != nil {
		return nil, err
	}
	return res, nil
}

// Confirm settles a hold into a committed Out movement: reserved and
// on-hand both drop by the held quantity and a Kardex entry is appended.
// Calling it again on an already confirmed reservation is a successful
// no-op.
func (uc *reservationUseCase) Confirm(ctx context.Context, input *dto.ConfirmInput) (*model.Reservation, error) {
	res, err := uc.repo.GetByID(ctx, input.ReservationID)
	if err != nil {
		return nil, err
	}
	if res.Status == model.ReservationConfirmed {
		return res, nil
	}
	if res.Status.IsFinalized() {
		return nil, model.ErrReservationFinalized
	}

	rec, err := uc.stockRepo.GetByID(ctx, res.StockID)
	if err != nil {
		return nil, err
	}
	expectedVersion := rec.Version
	if err := rec.Release(res.Quantity); err != nil {
		return nil, err
	}
	if err := rec.ApplyDelta(res.Quantity.Neg()); err != nil {
		return nil, err
	}
	rec.BumpVersion()

	mv := model.NewMovement(
		rec.ID, model.MovementOut, res.Quantity.Neg(), nil, rec.Quantity,
		&res.ReferenceType, &res.ReferenceID, optional(input.ActorID),
	)
	reason := confirmReason
	mv.Reason = &reason

	claimed, err := uc.repo.FinalizeWithStock(ctx, res.ID, model.ReservationConfirmed, rec, expectedVersion, mv)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return uc.resolveRace(ctx, res.ID, model.ReservationConfirmed)
	}

	res.Status = model.ReservationConfirmed
	return res, nil
}

// Cancel releases a hold without touching on-hand quantity. No ledger entry
// is written: nothing was committed, so there is nothing to replay. Calling
// it again on an already cancelled reservation is a successful no-op.
func (uc *reservationUseCase) Cancel(ctx context.Context, reservationID string) (*model.Reservation, error) {
	res, err := uc.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status == model.ReservationCancelled {
		return res, nil
	}
	if res.Status.IsFinalized() {
		return nil, model.ErrReservationFinalized
	}

	rec, err := uc.stockRepo.GetByID(ctx, res.StockID)
	if err != nil {
		return nil, err
	}
	expectedVersion := rec.Version
	if err := rec.Release(res.Quantity); err != nil {
		return nil, err
	}
	rec.BumpVersion()

	claimed, err := uc.repo.FinalizeWithStock(ctx, res.ID, model.ReservationCancelled, rec, expectedVersion, nil)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return uc.resolveRace(ctx, res.ID, model.ReservationCancelled)
	}

	res.Status = model.ReservationCancelled
	return res, nil
}

func (uc *reservationUseCase) ListReservations(ctx context.Context, filters *dto.ReservationFilters) ([]model.Reservation, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

// ExpireDue sweeps overdue pending reservations: each one is released and
// marked Expired under the status guard, so a hold racing with a confirm or
// cancel is settled exactly once no matter who wins.
func (uc *reservationUseCase) ExpireDue(ctx context.Context) (*dto.ExpireResult, error) {
	overdue, err := uc.repo.FindExpired(ctx, time.Now(), expireBatchSize)
	if err != nil {
		return nil, err
	}

	result := &dto.ExpireResult{}
	for i := range overdue {
		res := &overdue[i]
		if err := uc.expireOne(ctx, res); err != nil {
			result.FailedCount++
			uc.logger.Warn("failed to expire reservation",
				zap.String("reservation_id", res.ID),
				zap.String("stock_id", res.StockID),
				zap.Error(err),
			)
			continue
		}
		result.ExpiredCount++
		result.ExpiredIDs = append(result.ExpiredIDs, res.ID)
	}
	return result, nil
}

func (uc *reservationUseCase) expireOne(ctx context.Context, res *model.Reservation) error {
	// Refresh: the hold may have been confirmed or cancelled since the
	// sweep batch was read.
	res, err := uc.repo.GetByID(ctx, res.ID)
	if err != nil {
		return err
	}
	if res.Status.IsFinalized() {
		return nil
	}

	rec, err := uc.stockRepo.GetByID(ctx, res.StockID)
	if err != nil {
		return err
	}
	expectedVersion := rec.Version
	if err := rec.Release(res.Quantity); err != nil {
		return err
	}
	rec.BumpVersion()

	claimed, err := uc.repo.FinalizeWithStock(ctx, res.ID, model.ReservationExpired, rec, expectedVersion, nil)
	if err != nil {
		// A version conflict just means another writer got there between
		// our read and write; the next sweep tick picks the hold up again
		// if it is still pending.
		return err
	}
	if !claimed {
		// Lost the race against a confirm or cancel: nothing to do.
		uc.logger.Debug("reservation already finalized before sweep", zap.String("reservation_id", res.ID))
	}
	return nil
}

// resolveRace handles a finalize that lost the status-guard race: if the
// winner drove the reservation to the same terminal state we wanted, the
// call is an idempotent success.
func (uc *reservationUseCase) resolveRace(ctx context.Context, reservationID string, want model.ReservationStatus) (*model.Reservation, error) {
	res, err := uc.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status == want {
		return res, nil
	}
	return nil, model.ErrReservationFinalized
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
