package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/stock/dto"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, rec *model.StockRecord) error {
	query := `
        INSERT INTO stock_records (
            id, store_id, product_id, variant_id,
            quantity, reserved_quantity, version,
            min_stock_level, max_stock_level, created_at, updated_at
        )
        VALUES (
            :id, :store_id, :product_id, :variant_id,
            :quantity, :reserved_quantity, :version,
            :min_stock_level, :max_stock_level, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, rec)
	return err
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := r.DB.GetContext(ctx, &rec, `SELECT * FROM stock_records WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrStockNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PGRepository) GetByStoreAndProduct(ctx context.Context, storeID, productID string) (*model.StockRecord, error) {
	var rec model.StockRecord
	query := `SELECT * FROM stock_records WHERE store_id = $1 AND product_id = $2 AND variant_id IS NULL`
	err := r.DB.GetContext(ctx, &rec, query, storeID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrStockNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PGRepository) GetByStoreAndVariant(ctx context.Context, storeID, variantID string) (*model.StockRecord, error) {
	var rec model.StockRecord
	query := `SELECT * FROM stock_records WHERE store_id = $1 AND variant_id = $2 AND product_id IS NULL`
	err := r.DB.GetContext(ctx, &rec, query, storeID, variantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrStockNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.StockFilters) ([]model.StockRecord, int, error) {
	var items []model.StockRecord
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.StoreID != nil && *f.StoreID != "" {
		conditions = append(conditions, "store_id = :store_id")
		args["store_id"] = *f.StoreID
	}
	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.VariantID != "" {
		conditions = append(conditions, "variant_id = :variant_id")
		args["variant_id"] = f.VariantID
	}
	if f.LowStockOnly {
		conditions = append(conditions, "(quantity - reserved_quantity) <= min_stock_level")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM stock_records" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM stock_records" + whereClause + " ORDER BY updated_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) FindForValuation(ctx context.Context, storeID *string) ([]model.StockRecord, error) {
	var items []model.StockRecord
	query := `SELECT * FROM stock_records WHERE quantity > 0`
	args := []interface{}{}
	if storeID != nil && *storeID != "" {
		query += ` AND store_id = $1`
		args = append(args, *storeID)
	}
	query += ` ORDER BY store_id, created_at`
	err := r.DB.SelectContext(ctx, &items, query, args...)
	return items, err
}

const updateWithVersionQuery = `
        UPDATE stock_records
        SET quantity = :quantity,
            reserved_quantity = :reserved_quantity,
            version = :version,
            min_stock_level = :min_stock_level,
            max_stock_level = :max_stock_level,
            updated_at = :updated_at
        WHERE id = :id AND version = :expected_version
    `

type versionedUpdate struct {
	*model.StockRecord
	ExpectedVersion int `db:"expected_version"`
}

// UpdateWithVersion is the optimistic-locking gate: the row is only written
// when its stored version still equals expectedVersion. Zero rows affected
// means another writer advanced the version first.
func (r *PGRepository) UpdateWithVersion(ctx context.Context, rec *model.StockRecord, expectedVersion int) error {
	res, err := r.DB.NamedExecContext(ctx, updateWithVersionQuery, &versionedUpdate{rec, expectedVersion})
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrOptimisticLock
	}
	return nil
}

const insertMovementQuery = `
        INSERT INTO movements (
            id, stock_id, movement_type, reason, quantity, unit_cost,
            balance_after, reference_type, reference_id, actor_id, notes, created_at
        )
        VALUES (
            :id, :stock_id, :movement_type, :reason, :quantity, :unit_cost,
            :balance_after, :reference_type, :reference_id, :actor_id, :notes, :created_at
        )
    `

// UpdateWithVersionAndMovement performs the guarded stock write and the
// ledger append in one transaction, so a movement row exists exactly when
// its stock change was committed.
func (r *PGRepository) UpdateWithVersionAndMovement(ctx context.Context, rec *model.StockRecord, expectedVersion int, mv *model.Movement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, updateWithVersionQuery, &versionedUpdate{rec, expectedVersion})
	if err != nil {
		return fmt.Errorf("failed to update stock record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrOptimisticLock
	}

	if _, err = tx.NamedExecContext(ctx, insertMovementQuery, mv); err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}

	return tx.Commit()
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.Movement, int, error) {
	var items []model.Movement
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.StockID != "" {
		conditions = append(conditions, "stock_id = :stock_id")
		args["stock_id"] = f.StockID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM movements" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	// Creation order is the replay order for the Kardex.
	query := "SELECT * FROM movements" + whereClause + " ORDER BY created_at ASC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

// WeightedAverageCost computes sum(|qty| * unit_cost) / sum(|qty|) over
// received stock (in and transfer_in) that carries a unit cost. Returns nil
// when no qualifying entries exist.
func (r *PGRepository) WeightedAverageCost(ctx context.Context, stockID string) (*decimal.Decimal, error) {
	var result sql.NullString
	query := `
        SELECT
            CASE
                WHEN SUM(ABS(quantity)) > 0 THEN
                    (SUM(ABS(quantity) * unit_cost) / SUM(ABS(quantity)))::text
                ELSE NULL
            END
        FROM movements
        WHERE stock_id = $1
          AND movement_type IN ('in', 'transfer_in')
          AND unit_cost IS NOT NULL
          AND quantity > 0
    `
	if err := r.DB.GetContext(ctx, &result, query, stockID); err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, nil
	}
	cost, err := decimal.NewFromString(result.String)
	if err != nil {
		return nil, err
	}
	return &cost, nil
}
