package repository

import (
	"context"
	"time"

	"github.com/kjannette/priceboard-backend/internal/models"
)

type ClickRepo struct {
	db DB
}

func NewClickRepo(db DB) *ClickRepo {
	return &ClickRepo{db: db}
}

// Record stores c and fills in its id. A zero timestamp means now.
func (r *ClickRepo) Record(ctx context.Context, c *models.Click) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO product_clicks (product_id, clicked_at, rogier_choice, top10)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		c.ProductID, c.Timestamp, c.RogierChoice, c.Top10,
	).Scan(&c.ID)
	return mapErr(err)
}

// ListSince returns clicks at or after since, oldest first. A zero since
// returns every click.
func (r *ClickRepo) ListSince(ctx context.Context, since time.Time) ([]models.Click, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, product_id, clicked_at, rogier_choice, top10
		 FROM product_clicks WHERE clicked_at >= $1 ORDER BY clicked_at ASC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectClicks(rows)
}

func collectClicks(rows rowsIter) ([]models.Click, error) {
	var out []models.Click
	for rows.Next() {
		var c models.Click
		if err := rows.Scan(&c.ID, &c.ProductID, &c.Timestamp, &c.RogierChoice, &c.Top10); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
