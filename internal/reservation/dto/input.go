package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReserveInput holds quantity against a stock record. ExpectedVersion is
// optional: zero means "the version read inside this call". A zero ExpiresAt
// falls back to the configured default TTL.
type ReserveInput struct {
	StockID         string
	Quantity        decimal.Decimal
	ReferenceType   string // e.g. "cart", "order"
	ReferenceID     string
	ExpiresAt       time.Time
	ExpectedVersion int
}

type ConfirmInput struct {
	ReservationID string
	ActorID       string
}
