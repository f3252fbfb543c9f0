package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a Kardex entry. The type determines the sign of
// the quantity applied to the stock record.
type MovementType string

const (
	MovementIn          MovementType = "in"
	MovementOut         MovementType = "out"
	MovementAdjustment  MovementType = "adjustment"
	MovementTransferOut MovementType = "transfer_out"
	MovementTransferIn  MovementType = "transfer_in"
	MovementReservation MovementType = "reservation"
	MovementRelease     MovementType = "release"
)

// ParseMovementType accepts the stored form plus the aliases used by
// upstream workflows ("receive", "sale", "reserve", ...).
func ParseMovementType(s string) (MovementType, error) {
	switch strings.ReplaceAll(strings.ToLower(s), "-", "_") {
	case "in", "receive", "received":
		return MovementIn, nil
	case "out", "sale", "sold":
		return MovementOut, nil
	case "adjustment", "adjust":
		return MovementAdjustment, nil
	case "transfer_out", "transferout":
		return MovementTransferOut, nil
	case "transfer_in", "transferin":
		return MovementTransferIn, nil
	case "reservation", "reserve", "reserved":
		return MovementReservation, nil
	case "release", "released":
		return MovementRelease, nil
	default:
		return "", ErrInvalidMovementType
	}
}

// IsIncrease reports whether the type adds to on-hand quantity.
func (t MovementType) IsIncrease() bool {
	return t == MovementIn || t == MovementTransferIn || t == MovementRelease
}

// IsDecrease reports whether the type removes from on-hand quantity.
func (t MovementType) IsDecrease() bool {
	return t == MovementOut || t == MovementTransferOut || t == MovementReservation
}

// SignedQuantity applies the type's sign to a positive magnitude.
func (t MovementType) SignedQuantity(qty decimal.Decimal) decimal.Decimal {
	if t.IsDecrease() {
		return qty.Abs().Neg()
	}
	return qty.Abs()
}

// Movement is one immutable Kardex entry. Entries are append-only: for a
// given stock_id, replaying the signed quantities in creation order from
// zero must reproduce every BalanceAfter, and the last BalanceAfter must
// equal the stock record's current quantity.
type Movement struct {
	ID            string           `db:"id"`
	StockID       string           `db:"stock_id"`
	MovementType  MovementType     `db:"movement_type"`
	Reason        *string          `db:"reason"`
	Quantity      decimal.Decimal  `db:"quantity"` // signed
	UnitCost      *decimal.Decimal `db:"unit_cost"`
	BalanceAfter  decimal.Decimal  `db:"balance_after"`
	ReferenceType *string          `db:"reference_type"`
	ReferenceID   *string          `db:"reference_id"`
	ActorID       *string          `db:"actor_id"`
	Notes         *string          `db:"notes"`
	CreatedAt     time.Time        `db:"created_at"`
}

// NewMovement creates a Kardex entry with the signed quantity and the
// on-hand balance immediately after the change.
func NewMovement(stockID string, mt MovementType, signedQty decimal.Decimal, unitCost *decimal.Decimal, balanceAfter decimal.Decimal, refType, refID, actorID *string) *Movement {
	return &Movement{
		ID:            uuid.New().String(),
		StockID:       stockID,
		MovementType:  mt,
		Quantity:      signedQty,
		UnitCost:      unitCost,
		BalanceAfter:  balanceAfter,
		ReferenceType: refType,
		ReferenceID:   refID,
		ActorID:       actorID,
		CreatedAt:     time.Now().UTC(),
	}
}

// TotalCost returns |quantity| * unit_cost, or nil when no cost was recorded.
func (m *Movement) TotalCost() *decimal.Decimal {
	if m.UnitCost == nil {
		return nil
	}
	v := m.Quantity.Abs().Mul(*m.UnitCost)
	return &v
}
