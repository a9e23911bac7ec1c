package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kjannette/priceboard-backend/internal/models"
)

const (
	productWritable = `id, name, store, url, image, type, subtypes, price, provisional_price,
	enabled, enabled_top10, warning, scrape_enabled, out_of_stock, only_in_store,
	discount_type, discount_value, discount_code, trustpilot_url, trustpilot_score,
	details, scraper, cookie_banner_xpaths`
	productColumns = productWritable + `, created_at, updated_at`
)

// productDetails holds the form fields that are only ever read back as a
// whole. Stored in the details JSONB column.
type productDetails struct {
	ProteinPer100g      string              `json:"protein_per_100g,omitempty"`
	CreatinePer100g     string              `json:"creatine_per_100g,omitempty"`
	CaloriesPer100g     string              `json:"calories_per_100g,omitempty"`
	Dose                string              `json:"dose,omitempty"`
	Amount              string              `json:"ammount,omitempty"`
	PriceForElementGram string              `json:"price_for_element_gram,omitempty"`
	PricePerDose        string              `json:"price_per_dose,omitempty"`
	PricePer100Calories string              `json:"price_per_100_calories,omitempty"`
	Ingredients         []models.Ingredient `json:"ingredients,omitempty"`
}

func detailsOf(p *models.Product) productDetails {
	return productDetails{
		ProteinPer100g:      p.ProteinPer100g,
		CreatinePer100g:     p.CreatinePer100g,
		CaloriesPer100g:     p.CaloriesPer100g,
		Dose:                p.Dose,
		Amount:              p.Amount,
		PriceForElementGram: p.PriceForElementGram,
		PricePerDose:        p.PricePerDose,
		PricePer100Calories: p.PricePer100Calories,
		Ingredients:         p.Ingredients,
	}
}

func (d productDetails) apply(p *models.Product) {
	p.ProteinPer100g = d.ProteinPer100g
	p.CreatinePer100g = d.CreatinePer100g
	p.CaloriesPer100g = d.CaloriesPer100g
	p.Dose = d.Dose
	p.Amount = d.Amount
	p.PriceForElementGram = d.PriceForElementGram
	p.PricePerDose = d.PricePerDose
	p.PricePer100Calories = d.PricePer100Calories
	p.Ingredients = d.Ingredients
}

type ProductRepo struct {
	db DB
}

func NewProductRepo(db DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func (r *ProductRepo) List(ctx context.Context) ([]models.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products ORDER BY store, name`)
}

// ListProvisional returns products whose last scrape produced a price that
// still awaits approval.
func (r *ProductRepo) ListProvisional(ctx context.Context) ([]models.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products
		WHERE provisional_price IS NOT NULL ORDER BY store, name`)
}

// ListNeedingFix returns enabled products whose scraper reported a warning.
func (r *ProductRepo) ListNeedingFix(ctx context.Context) ([]models.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products
		WHERE enabled AND warning ORDER BY store, name`)
}

func (r *ProductRepo) list(ctx context.Context, sql string) ([]models.Product, error) {
	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *ProductRepo) Get(ctx context.Context, id string) (*models.Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

// Create inserts p, assigning a new id when p.ID is empty. Timestamps are
// set from the database.
func (r *ProductRepo) Create(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	args, err := productArgs(p)
	if err != nil {
		return err
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO products (`+productWritable+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		 RETURNING created_at, updated_at`,
		args...,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *ProductRepo) Update(ctx context.Context, p *models.Product) error {
	args, err := productArgs(p)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx,
		`UPDATE products SET
		   name=$2, store=$3, url=$4, image=$5, type=$6, subtypes=$7, price=$8,
		   provisional_price=$9, enabled=$10, enabled_top10=$11, warning=$12,
		   scrape_enabled=$13, out_of_stock=$14, only_in_store=$15,
		   discount_type=$16, discount_value=$17, discount_code=$18,
		   trustpilot_url=$19, trustpilot_score=$20, details=$21, scraper=$22,
		   cookie_banner_xpaths=$23, updated_at=NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		args...,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendPrice records one scraped observation for a product.
func (r *ProductRepo) AppendPrice(ctx context.Context, productID string, pt models.PricePoint) error {
	ts := pt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO price_history (product_id, scraped_data, scraped_at) VALUES ($1, $2, $3)`,
		productID, pt.Value, ts,
	)
	return mapErr(err)
}

// PriceHistory returns a product's observations oldest first. An unknown
// product yields an empty history.
func (r *ProductRepo) PriceHistory(ctx context.Context, productID string) ([]models.PricePoint, error) {
	rows, err := r.db.Query(ctx,
		`SELECT scraped_data, scraped_at FROM price_history
		 WHERE product_id = $1 ORDER BY scraped_at ASC`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PricePoint
	for rows.Next() {
		var pt models.PricePoint
		if err := rows.Scan(&pt.Value, &pt.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

// ListWithHistory returns every product with its full price history
// attached, the snapshot the daily aggregation runs over. Both reads run in
// one read-only REPEATABLE READ transaction.
func (r *ProductRepo) ListWithHistory(ctx context.Context) ([]models.Product, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY store, name`)
	if err != nil {
		return nil, err
	}
	products, err := collectProducts(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = tx.Query(ctx,
		`SELECT product_id, scraped_data, scraped_at FROM price_history
		 ORDER BY product_id, scraped_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make(map[string][]models.PricePoint)
	for rows.Next() {
		var id string
		var pt models.PricePoint
		if err := rows.Scan(&id, &pt.Value, &pt.Timestamp); err != nil {
			return nil, err
		}
		history[id] = append(history[id], pt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	for i := range products {
		products[i].PriceHistory = history[products[i].ID]
	}
	return products, nil
}

// SetProvisional stores a scraped price for review. nil clears it.
func (r *ProductRepo) SetProvisional(ctx context.Context, id string, price *float64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET provisional_price = $2, updated_at = NOW() WHERE id = $1`,
		id, price,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApproveProvisional promotes the provisional price to the live price and
// returns it.
func (r *ProductRepo) ApproveProvisional(ctx context.Context, id string) (float64, error) {
	var price float64
	err := r.db.QueryRow(ctx,
		`UPDATE products
		 SET price = provisional_price, provisional_price = NULL, updated_at = NOW()
		 WHERE id = $1 AND provisional_price IS NOT NULL
		 RETURNING price`,
		id,
	).Scan(&price)
	if err == nil {
		return price, nil
	}
	if err = mapErr(err); !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if _, err := r.Get(ctx, id); err != nil {
		return 0, err
	}
	return 0, ErrNoProvisional
}

// SaveScraper replaces the product's action list and clears its warning.
func (r *ProductRepo) SaveScraper(ctx context.Context, id string, actions []models.ScraperAction) error {
	if actions == nil {
		actions = []models.ScraperAction{}
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("marshal scraper: %w", err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET scraper = $2, warning = FALSE, updated_at = NOW() WHERE id = $1`,
		id, raw,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- scan helpers ---

func productArgs(p *models.Product) ([]any, error) {
	details, err := json.Marshal(detailsOf(p))
	if err != nil {
		return nil, fmt.Errorf("marshal details: %w", err)
	}
	actions := p.Scraper
	if actions == nil {
		actions = []models.ScraperAction{}
	}
	scraper, err := json.Marshal(actions)
	if err != nil {
		return nil, fmt.Errorf("marshal scraper: %w", err)
	}
	discountType := p.DiscountType
	if discountType == "" {
		discountType = models.DiscountNone
	}
	return []any{
		p.ID, p.Name, p.Store, p.URL, p.Image, p.Type, nonNil(p.Subtypes), p.Price, p.ProvisionalPrice,
		p.Enabled, p.EnabledTop10, p.Warning, p.ScrapeEnabled, p.OutOfStock, p.OnlyInStore,
		discountType, p.DiscountValue, p.DiscountCode, p.TrustpilotURL, p.TrustpilotScore,
		details, scraper, nonNil(p.CookieBannerXPaths),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanProduct(row scannable) (*models.Product, error) {
	var p models.Product
	var details, scraper []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.Store, &p.URL, &p.Image, &p.Type, &p.Subtypes, &p.Price, &p.ProvisionalPrice,
		&p.Enabled, &p.EnabledTop10, &p.Warning, &p.ScrapeEnabled, &p.OutOfStock, &p.OnlyInStore,
		&p.DiscountType, &p.DiscountValue, &p.DiscountCode, &p.TrustpilotURL, &p.TrustpilotScore,
		&details, &scraper, &p.CookieBannerXPaths, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		var d productDetails
		if err := json.Unmarshal(details, &d); err != nil {
			return nil, fmt.Errorf("product %s details: %w", p.ID, err)
		}
		d.apply(&p)
	}
	if len(scraper) > 0 {
		if err := json.Unmarshal(scraper, &p.Scraper); err != nil {
			return nil, fmt.Errorf("product %s scraper: %w", p.ID, err)
		}
	}
	return &p, nil
}

func collectProducts(rows rowsIter) ([]models.Product, error) {
	var out []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
