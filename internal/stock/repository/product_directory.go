package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// PGProductDirectory answers existence checks against the catalog tables
// owned by the product service. Read-only by contract.
type PGProductDirectory struct {
	DB *sqlx.DB
}

func NewPGProductDirectory(db *sqlx.DB) *PGProductDirectory {
	return &PGProductDirectory{DB: db}
}

func (d *PGProductDirectory) ProductExists(ctx context.Context, productID string) (bool, error) {
	var exists bool
	err := d.DB.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID)
	return exists, err
}

func (d *PGProductDirectory) VariantExists(ctx context.Context, variantID string) (bool, error) {
	var exists bool
	err := d.DB.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM product_variants WHERE id = $1)`, variantID)
	return exists, err
}
