package model

import "errors"

// Domain errors shared by all ledger use cases. Callers match with errors.Is.
var (
	// Stock errors
	ErrStockNotFound           = errors.New("stock record not found")
	ErrStockExists             = errors.New("stock record already exists for this store and item")
	ErrOptimisticLock          = errors.New("stock record was modified by another writer")
	ErrInsufficientStock       = errors.New("insufficient available stock")
	ErrNegativeStock           = errors.New("stock quantity cannot go negative")
	ErrReservedExceedsQuantity = errors.New("reserved quantity cannot exceed on-hand quantity")
	ErrInvalidQuantity         = errors.New("quantity must be positive")
	ErrProductVariantXOR       = errors.New("exactly one of product_id or variant_id must be set")

	// Reservation errors
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrReservationFinalized = errors.New("reservation is already finalized")
	ErrExpiryInPast         = errors.New("reservation expiry must be in the future")

	// Validation errors
	ErrInvalidMovementType      = errors.New("invalid movement type")
	ErrInvalidReservationStatus = errors.New("invalid reservation status")

	// Collaborator errors
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
)
