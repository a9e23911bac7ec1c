package repository

import "context"

// FavoritesRepo stores the curated product list shown as the store owner's
// choice.
type FavoritesRepo struct {
	db DB
}

func NewFavoritesRepo(db DB) *FavoritesRepo {
	return &FavoritesRepo{db: db}
}

func (r *FavoritesRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT product_id FROM favorites ORDER BY product_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Replace swaps the whole list in one transaction.
func (r *FavoritesRepo) Replace(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM favorites`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO favorites (product_id)
		 SELECT DISTINCT unnest($1::text[]) ON CONFLICT DO NOTHING`,
		ids,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
