package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/pkg/logger"
	"github.com/posware/stock-ledger-service/internal/stock"
	"github.com/posware/stock-ledger-service/internal/stock/dto"
)

// mockStockRepo keeps records and movements in memory and enforces the same
// version guard the Postgres repository does.
type mockStockRepo struct {
	mu        sync.Mutex
	records   map[string]model.StockRecord
	movements []model.Movement
}

func newMockStockRepo() *mockStockRepo {
	return &mockStockRepo{records: map[string]model.StockRecord{}}
}

func (m *mockStockRepo) Create(_ context.Context, rec *model.StockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = *rec
	return nil
}

func (m *mockStockRepo) GetByID(_ context.Context, id string) (*model.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, model.ErrStockNotFound
	}
	return &rec, nil
}

func (m *mockStockRepo) GetByStoreAndProduct(_ context.Context, storeID, productID string) (*model.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.StoreID == storeID && rec.ProductID != nil && *rec.ProductID == productID {
			return &rec, nil
		}
	}
	return nil, model.ErrStockNotFound
}

func (m *mockStockRepo) GetByStoreAndVariant(_ context.Context, storeID, variantID string) (*model.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.StoreID == storeID && rec.VariantID != nil && *rec.VariantID == variantID {
			return &rec, nil
		}
	}
	return nil, model.ErrStockNotFound
}

func (m *mockStockRepo) FindAll(_ context.Context, f *dto.StockFilters) ([]model.StockRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []model.StockRecord
	for _, rec := range m.records {
		if f.StoreID != nil && *f.StoreID != "" && rec.StoreID != *f.StoreID {
			continue
		}
		if f.LowStockOnly && !rec.IsLowStock() {
			continue
		}
		items = append(items, rec)
	}
	return items, len(items), nil
}

func (m *mockStockRepo) FindForValuation(_ context.Context, storeID *string) ([]model.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []model.StockRecord
	for _, rec := range m.records {
		if rec.Quantity.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if storeID != nil && *storeID != "" && rec.StoreID != *storeID {
			continue
		}
		items = append(items, rec)
	}
	return items, nil
}

func (m *mockStockRepo) casUpdate(rec *model.StockRecord, expectedVersion int) error {
	stored, ok := m.records[rec.ID]
	if !ok || stored.Version != expectedVersion {
		return model.ErrOptimisticLock
	}
	m.records[rec.ID] = *rec
	return nil
}

func (m *mockStockRepo) UpdateWithVersion(_ context.Context, rec *model.StockRecord, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.casUpdate(rec, expectedVersion)
}

func (m *mockStockRepo) UpdateWithVersionAndMovement(_ context.Context, rec *model.StockRecord, expectedVersion int, mv *model.Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.casUpdate(rec, expectedVersion); err != nil {
		return err
	}
	m.movements = append(m.movements, *mv)
	return nil
}

func (m *mockStockRepo) ListMovements(_ context.Context, f *dto.MovementFilters) ([]model.Movement, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []model.Movement
	for _, mv := range m.movements {
		if f.StockID != "" && mv.StockID != f.StockID {
			continue
		}
		items = append(items, mv)
	}
	return items, len(items), nil
}

func (m *mockStockRepo) WeightedAverageCost(_ context.Context, stockID string) (*decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totalCost := decimal.Zero
	totalQty := decimal.Zero
	for _, mv := range m.movements {
		if mv.StockID != stockID || mv.UnitCost == nil || !mv.Quantity.IsPositive() {
			continue
		}
		if mv.MovementType != model.MovementIn && mv.MovementType != model.MovementTransferIn {
			continue
		}
		totalCost = totalCost.Add(mv.Quantity.Abs().Mul(*mv.UnitCost))
		totalQty = totalQty.Add(mv.Quantity.Abs())
	}
	if totalQty.IsZero() {
		return nil, nil
	}
	wac := totalCost.Div(totalQty)
	return &wac, nil
}

type mockProductDirectory struct {
	products map[string]bool
	variants map[string]bool
}

func (m *mockProductDirectory) ProductExists(_ context.Context, id string) (bool, error) {
	return m.products[id], nil
}

func (m *mockProductDirectory) VariantExists(_ context.Context, id string) (bool, error) {
	return m.variants[id], nil
}

func strPtr(s string) *string { return &s }

func newTestUseCase(repo *mockStockRepo) stock.UseCase {
	dir := &mockProductDirectory{
		products: map[string]bool{"prod-1": true},
		variants: map[string]bool{"var-1": true},
	}
	return NewStockUseCase(repo, dir, nil, 0, logger.NewNop())
}

func seedStock(t *testing.T, repo *mockStockRepo, qty int64) *model.StockRecord {
	t.Helper()
	rec, err := model.NewStockRecord("store-1", strPtr("prod-1"), nil)
	if err != nil {
		t.Fatalf("NewStockRecord: %v", err)
	}
	rec.Quantity = decimal.NewFromInt(qty)
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return rec
}

func TestInitializeStock(t *testing.T) {
	repo := newMockStockRepo()
	uc := newTestUseCase(repo)
	ctx := context.Background()

	rec, err := uc.InitializeStock(ctx, &dto.InitializeStockInput{StoreID: "store-1", ProductID: strPtr("prod-1")})
	if err != nil {
		t.Fatalf("InitializeStock: %v", err)
	}
	if !rec.Quantity.IsZero() || rec.Version != 1 {
		t.Errorf("expected fresh record, got qty=%s version=%d", rec.Quantity, rec.Version)
	}

	// Same store+product again is a conflict.
	if _, err := uc.InitializeStock(ctx, &dto.InitializeStockInput{StoreID: "store-1", ProductID: strPtr("prod-1")}); !errors.Is(err, model.ErrStockExists) {
		t.Errorf("duplicate: expected ErrStockExists, got %v", err)
	}

	// Unknown catalog item.
	if _, err := uc.InitializeStock(ctx, &dto.InitializeStockInput{StoreID: "store-1", ProductID: strPtr("ghost")}); !errors.Is(err, model.ErrProductNotFound) {
		t.Errorf("unknown product: expected ErrProductNotFound, got %v", err)
	}

	// Product/variant XOR.
	if _, err := uc.InitializeStock(ctx, &dto.InitializeStockInput{StoreID: "store-1", ProductID: strPtr("prod-1"), VariantID: strPtr("var-1")}); !errors.Is(err, model.ErrProductVariantXOR) {
		t.Errorf("both set: expected ErrProductVariantXOR, got %v", err)
	}
}

func TestApplyMovement_InAndOut(t *testing.T) {
	repo := newMockStockRepo()
	uc := newTestUseCase(repo)
	ctx := context.Background()
	rec := seedStock(t, repo, 0)

	cost := decimal.NewFromFloat(2.00)
	mv, err := uc.ApplyMovement(ctx, &dto.ApplyMovementInput{
		StockID:      rec.ID,
		MovementType: "receive",
		Quantity:     decimal.NewFromInt(50),
		UnitCost:     &cost,
	})
	if err != nil {
		t.Fatalf("ApplyMovement(in): %v", err)
	}
	if !mv.Quantity.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected signed +50, got %s", mv.Quantity)
	}
	if !mv.BalanceAfter.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected balance 50, got %s", mv.BalanceAfter)
	}

	mv, err = uc.ApplyMovement(ctx, &dto.ApplyMovementInput{
		StockID:      rec.ID,
		MovementType: "sale",
		Quantity:     decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("ApplyMovement(out): %v", err)
	}
	if !mv.Quantity.Equal(decimal.NewFromInt(-20)) {
		t.Errorf("expected signed -20, got %s", mv.Quantity)
	}
	if !mv.BalanceAfter.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected balance 30, got %s", mv.BalanceAfter)
	}

	got, err := uc.GetStock(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetStock: %v", err)
	}
	if !got.Quantity.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected on-hand 30, got %s", got.Quantity)
	}
	if got.Version != 3 {
		t.Errorf("expected version 3 after two movements, got %d", got.Version)
	}
}

func TestApplyMovement_AdjustmentKeepsSign(t *testing.T) {
	repo := newMockStockRepo()
	uc := newTestUseCase(repo)
	ctx := context.Background()
	rec := seedStock(t, repo, 10)

	mv, err := uc.ApplyMovement(ctx, &dto.ApplyMovementInput{
		StockID:      rec.ID,
		MovementType: "adjustment",
		Quantity:     decimal.NewFromInt(-3),
		Reason:       "shrinkage",
	})
	if err != nil {
		t.Fatalf("ApplyMovement(adjustment): %v", err)
	}
	if !mv.Quantity.Equal(decimal.NewFromInt(-3)) {
		t.Errorf("expected -3, got %s", mv.Quantity)
	}
	if !mv.BalanceAfter.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected balance 7, got %s", mv.BalanceAfter)
	}
}

func TestApplyMovement_RejectsHoldTypes(t *testing.T) {
	repo := newMockStockRepo()
	uc := newTestUseCase(repo)
	ctx := context.Background()
	rec := seedStock(t, repo, 10)

	for _, mt := range []string{"reservation", "release"} {
		_, err := uc.ApplyMovement(ctx, &dto.ApplyMovementInput{
			StockID:      rec.ID,
			MovementType: mt,
			Quantity:     decimal.NewFromInt(1),
		})
		if !errors.Is(err, model.ErrInvalidMovementType) {
			t.Errorf("%s: expected ErrInvalidMovementType, got %v", mt, err)
		}
	}
}

func TestApplyMovement_NegativeStockRefused(t *testing.T) {
	repo := newMockStockRepo()
	uc := newTestUseCase(repo)
	ctx := context.Background()
	rec := seedStock(t, repo, 5)

	_, err := uc.ApplyMovement(ctx, &dto.ApplyMovementInput{
		StockID:      rec.ID,
		MovementType: "out",
		Quantity:     decimal.NewFromInt(6),
	})
	if !errors.Is(err, model.ErrNegativeStock) {
		t.Errorf("expected ErrNegativeStock, got %v", err)
	}

	// Nothing was written.
	got, _ := repo.GetByID(ctx, rec.ID)
	if !got.Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("quantity changed after refused movement: %s", got.Quantity)
	}
	if len(repo.movements) != 0 {
		t.Errorf("expected no ledger entries, got %d", len(repo.movements))
	}
}

func TestApplyMovement_StaleVersion(t *testing.T) {
	repo := newMockStockRepo()
	uc := newTestUseCase(repo)
	ctx := context.Background()
	rec := seedStock(t, repo, 10)

	_, err := uc.ApplyMovement(ctx, &dto.ApplyMovementInput{
		StockID:         rec.ID,
		MovementType:    "in",
		Quantity:        decimal.NewFromInt(1),
		ExpectedVersion: rec.Version + 7,
	})
	if !errors.Is(err, model.ErrOptimisticLock) {
		t.Errorf("expected ErrOptimisticLock, got %v", err)
	}
}

func TestSetThresholds(t *testing.T) {
	repo := newMockStockRepo()
	uc := newTestUseCase(repo)
	ctx := context.Background()
	rec := seedStock(t, repo, 100)

	max := decimal.NewFromInt(500)
	got, err := uc.SetThresholds(ctx, &dto.SetThresholdsInput{
		StockID:       rec.ID,
		MinStockLevel: decimal.NewFromInt(20),
		MaxStockLevel: &max,
	})
	if err != nil {
		t.Fatalf("SetThresholds: %v", err)
	}
	if !got.MinStockLevel.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected min 20, got %s", got.MinStockLevel)
	}
	if got.MaxStockLevel == nil || !got.MaxStockLevel.Equal(max) {
		t.Errorf("expected max 500, got %v", got.MaxStockLevel)
	}
	if got.Version != rec.Version+1 {
		t.Errorf("expected version bump, got %d", got.Version)
	}
}

// Replaying the signed quantities from zero must land on every recorded
// balance and finish at the current on-hand quantity.
func TestGetStockHistory_ReplayInvariant(t *testing.T) {
	repo := newMockStockRepo()
	uc := newTestUseCase(repo)
	ctx := context.Background()
	rec := seedStock(t, repo, 0)

	steps := []struct {
		mt  string
		qty int64
	}{
		{"in", 50},
		{"out", 20},
		{"in", 30},
		{"adjustment", -5},
		{"transfer_out", 10},
	}
	for _, s := range steps {
		if _, err := uc.ApplyMovement(ctx, &dto.ApplyMovementInput{
			StockID:      rec.ID,
			MovementType: s.mt,
			Quantity:     decimal.NewFromInt(s.qty),
		}); err != nil {
			t.Fatalf("ApplyMovement(%s %d): %v", s.mt, s.qty, err)
		}
	}

	history, err := uc.GetStockHistory(ctx, &dto.StockHistoryQuery{StockID: rec.ID})
	if err != nil {
		t.Fatalf("GetStockHistory: %v", err)
	}
	if history.TotalMovements != len(steps) {
		t.Fatalf("expected %d movements, got %d", len(steps), history.TotalMovements)
	}

	balance := decimal.Zero
	for i, mv := range history.Movements {
		balance = balance.Add(mv.Quantity)
		if !mv.BalanceAfter.Equal(balance) {
			t.Errorf("movement %d: replayed balance %s != recorded %s", i, balance, mv.BalanceAfter)
		}
	}
	if !history.Stock.Quantity.Equal(balance) {
		t.Errorf("final replayed balance %s != on-hand %s", balance, history.Stock.Quantity)
	}
}

func TestGetStockHistory_WeightedAverageCost(t *testing.T) {
	repo := newMockStockRepo()
	uc := newTestUseCase(repo)
	ctx := context.Background()
	rec := seedStock(t, repo, 0)

	costA := decimal.NewFromFloat(2.00)
	costB := decimal.NewFromFloat(4.00)
	for _, in := range []struct {
		qty  int64
		cost *decimal.Decimal
	}{{50, &costA}, {50, &costB}} {
		if _, err := uc.ApplyMovement(ctx, &dto.ApplyMovementInput{
			StockID:      rec.ID,
			MovementType: "in",
			Quantity:     decimal.NewFromInt(in.qty),
			UnitCost:     in.cost,
		}); err != nil {
			t.Fatalf("ApplyMovement: %v", err)
		}
	}

	history, err := uc.GetStockHistory(ctx, &dto.StockHistoryQuery{StockID: rec.ID})
	if err != nil {
		t.Fatalf("GetStockHistory: %v", err)
	}
	if history.WeightedAverageCost == nil {
		t.Fatal("expected a weighted average cost")
	}
	if !history.WeightedAverageCost.Equal(decimal.NewFromFloat(3.00)) {
		t.Errorf("expected WAC 3.00, got %s", history.WeightedAverageCost)
	}
}
