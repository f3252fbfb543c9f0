package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/reservation/dto"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	var res model.Reservation
	err := r.DB.GetContext(ctx, &res, `SELECT * FROM reservations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrReservationNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ReservationFilters) ([]model.Reservation, int, error) {
	var items []model.Reservation
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.StockID != "" {
		conditions = append(conditions, "stock_id = :stock_id")
		args["stock_id"] = f.StockID
	}
	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	if f.ReferenceType != "" {
		conditions = append(conditions, "reference_type = :reference_type")
		args["reference_type"] = f.ReferenceType
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = :reference_id")
		args["reference_id"] = f.ReferenceID
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM reservations" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM reservations" + whereClause + " ORDER BY created_at DESC"
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

// FindExpired serves the sweep query; the (status, expires_at) index keeps
// it cheap even with a large reservation history.
func (r *PGRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	var items []model.Reservation
	query := `
        SELECT * FROM reservations
        WHERE status = 'pending' AND expires_at < $1
        ORDER BY expires_at ASC
        LIMIT $2
    `
	err := r.DB.SelectContext(ctx, &items, query, now, limit)
	return items, err
}

func (r *PGRepository) SumPendingByStock(ctx context.Context, stockID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `
        SELECT COALESCE(SUM(quantity), 0) FROM reservations
        WHERE stock_id = $1 AND status = 'pending'
    `
	err := r.DB.GetContext(ctx, &sum, query, stockID)
	return sum, err
}

const updateStockWithVersionQuery = `
        UPDATE stock_records
        SET quantity = :quantity,
            reserved_quantity = :reserved_quantity,
            version = :version,
            min_stock_level = :min_stock_level,
            max_stock_level = :max_stock_level,
            updated_at = :updated_at
        WHERE id = :id AND version = :expected_version
    `

type versionedStockUpdate struct {
	*model.StockRecord
	ExpectedVersion int `db:"expected_version"`
}

func (r *PGRepository) CreateWithStock(ctx context.Context, res *model.Reservation, rec *model.StockRecord, expectedVersion int) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.NamedExecContext(ctx, updateStockWithVersionQuery, &versionedStockUpdate{rec, expectedVersion})
	if err != nil {
		return fmt.Errorf("failed to update stock record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrOptimisticLock
	}

	insertQuery := `
        INSERT INTO reservations (
            id, stock_id, reference_type, reference_id,
            quantity, status, expires_at, created_at, updated_at
        )
        VALUES (
            :id, :stock_id, :reference_type, :reference_id,
            :quantity, :status, :expires_at, :created_at, :updated_at
        )
    `
	if _, err = tx.NamedExecContext(ctx, insertQuery, res); err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	return tx.Commit()
}

func (r *PGRepository) FinalizeWithStock(ctx context.Context, reservationID string, to model.ReservationStatus, rec *model.StockRecord, expectedVersion int, mv *model.Movement) (bool, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// The status guard is the decisive step: only the writer that flips
	// Pending to a terminal state settles the hold against the stock row.
	claim, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3 AND status = 'pending'`,
		string(to), time.Now().UTC(), reservationID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to finalize reservation: %w", err)
	}
	claimed, err := claim.RowsAffected()
	if err != nil {
		return false, err
	}
	if claimed == 0 {
		return false, nil
	}

	result, err := tx.NamedExecContext(ctx, updateStockWithVersionQuery, &versionedStockUpdate{rec, expectedVersion})
	if err != nil {
		return false, fmt.Errorf("failed to update stock record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, model.ErrOptimisticLock
	}

	if mv != nil {
		insertMovement := `
            INSERT INTO movements (
                id, stock_id, movement_type, reason, quantity, unit_cost,
                balance_after, reference_type, reference_id, actor_id, notes, created_at
            )
            VALUES (
                :id, :stock_id, :movement_type, :reason, :quantity, :unit_cost,
                :balance_after, :reference_type, :reference_id, :actor_id, :notes, :created_at
            )
        `
		if _, err = tx.NamedExecContext(ctx, insertMovement, mv); err != nil {
			return false, fmt.Errorf("failed to append movement: %w", err)
		}
	}

	return true, tx.Commit()
}
