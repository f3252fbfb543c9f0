package dto

type ReservationFilters struct {
	StockID       string
	Status        string
	ReferenceType string
	ReferenceID   string
	Page          int
	PageSize      int
}

// ExpireResult reports one sweep run.
type ExpireResult struct {
	ExpiredCount int
	FailedCount  int
	ExpiredIDs   []string
}
