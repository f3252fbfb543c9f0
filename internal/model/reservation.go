package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a stock hold.
// Pending is the only non-terminal state.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

// ParseReservationStatus accepts the stored form plus common aliases.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch strings.ToLower(s) {
	case "pending", "active":
		return ReservationPending, nil
	case "confirmed", "completed":
		return ReservationConfirmed, nil
	case "cancelled", "canceled":
		return ReservationCancelled, nil
	case "expired":
		return ReservationExpired, nil
	default:
		return "", ErrInvalidReservationStatus
	}
}

// IsFinalized reports whether the status is terminal.
func (s ReservationStatus) IsFinalized() bool {
	return s == ReservationConfirmed || s == ReservationCancelled || s == ReservationExpired
}

// Reservation is a temporary hold against a StockRecord. While Pending it
// contributes to the record's reserved_quantity; every terminal transition
// must settle that contribution exactly once.
type Reservation struct {
	ID            string            `db:"id"`
	StockID       string            `db:"stock_id"`
	ReferenceType string            `db:"reference_type"`
	ReferenceID   string            `db:"reference_id"`
	Quantity      decimal.Decimal   `db:"quantity"`
	Status        ReservationStatus `db:"status"`
	ExpiresAt     time.Time         `db:"expires_at"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
}

// NewReservation creates a Pending hold. expiresAt must be in the future.
func NewReservation(stockID, referenceType, referenceID string, qty decimal.Decimal, expiresAt time.Time) (*Reservation, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidQuantity
	}
	if !expiresAt.After(time.Now()) {
		return nil, ErrExpiryInPast
	}
	now := time.Now().UTC()
	return &Reservation{
		ID:            uuid.New().String(),
		StockID:       stockID,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		Quantity:      qty,
		Status:        ReservationPending,
		ExpiresAt:     expiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Confirm moves the hold to its Confirmed terminal state.
func (r *Reservation) Confirm() error {
	return r.transition(ReservationConfirmed)
}

// Cancel moves the hold to its Cancelled terminal state.
func (r *Reservation) Cancel() error {
	return r.transition(ReservationCancelled)
}

// Expire moves the hold to its Expired terminal state.
func (r *Reservation) Expire() error {
	return r.transition(ReservationExpired)
}

func (r *Reservation) transition(to ReservationStatus) error {
	if r.Status != ReservationPending {
		return ErrReservationFinalized
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// IsOverdue reports whether a Pending reservation has passed its expiry.
func (r *Reservation) IsOverdue(now time.Time) bool {
	return r.Status == ReservationPending && now.After(r.ExpiresAt)
}
