package repository

import (
	"context"

	"github.com/kjannette/priceboard-backend/internal/models"
)

// DiscountRepo keeps brand-wide discounts. A brand is matched against the
// product store column; applying or removing a discount rewrites the
// discount fields of every product of that store in the same transaction.
type DiscountRepo struct {
	db DB
}

func NewDiscountRepo(db DB) *DiscountRepo {
	return &DiscountRepo{db: db}
}

func (r *DiscountRepo) List(ctx context.Context) ([]models.BrandDiscount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT brand, discount_type, discount_value, discount_code
		 FROM brand_discounts ORDER BY brand ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDiscounts(rows)
}

// ApplyToStore upserts the brand discount and copies it onto the store's
// products. It returns the number of products updated.
func (r *DiscountRepo) ApplyToStore(ctx context.Context, d models.BrandDiscount) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO brand_discounts (brand, discount_type, discount_value, discount_code, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (brand) DO UPDATE SET
		   discount_type = EXCLUDED.discount_type,
		   discount_value = EXCLUDED.discount_value,
		   discount_code = EXCLUDED.discount_code,
		   updated_at = NOW()`,
		d.Brand, d.DiscountType, d.DiscountValue, d.DiscountCode,
	)
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE products SET discount_type = $2, discount_value = $3, discount_code = $4, updated_at = NOW()
		 WHERE store = $1`,
		d.Brand, d.DiscountType, d.DiscountValue, d.DiscountCode,
	)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RemoveFromStore deletes the brand discount and resets the store's
// products to no discount.
func (r *DiscountRepo) RemoveFromStore(ctx context.Context, brand string) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	del, err := tx.Exec(ctx, `DELETE FROM brand_discounts WHERE brand = $1`, brand)
	if err != nil {
		return 0, err
	}
	if del.RowsAffected() == 0 {
		return 0, ErrNotFound
	}

	none := models.NoDiscount()
	tag, err := tx.Exec(ctx,
		`UPDATE products SET discount_type = $2, discount_value = $3, discount_code = $4, updated_at = NOW()
		 WHERE store = $1`,
		brand, none.DiscountType, none.DiscountValue, none.DiscountCode,
	)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectDiscounts(rows rowsIter) ([]models.BrandDiscount, error) {
	var out []models.BrandDiscount
	for rows.Next() {
		var d models.BrandDiscount
		if err := rows.Scan(&d.Brand, &d.DiscountType, &d.DiscountValue, &d.DiscountCode); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
