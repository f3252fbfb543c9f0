package reservation

import (
	"context"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/reservation/dto"
)

type UseCase interface {
	Reserve(ctx context.Context, input *dto.ReserveInput) (*model.Reservation, error)
	Confirm(ctx context.Context, input *dto.ConfirmInput) (*model.Reservation, error)
	Cancel(ctx context.Context, reservationID string) (*model.Reservation, error)
	ListReservations(ctx context.Context, filters *dto.ReservationFilters) ([]model.Reservation, int, error)
	ExpireDue(ctx context.Context) (*dto.ExpireResult, error)
}
