package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// productSelectColumns maps nullable text columns to empty strings.
const productSelectColumns = `id, name, category,
	COALESCE(description, '') AS description,
	COALESCE(price_range, '') AS price_range,
	COALESCE(target_audience, '') AS target_audience,
	COALESCE(trending_score, 0) AS trending_score,
	COALESCE(amazon_asin, '') AS amazon_asin,
	COALESCE(tiktok_product_id, '') AS tiktok_product_id,
	COALESCE(instagram_product_id, '') AS instagram_product_id,
	COALESCE(youtube_video_id, '') AS youtube_video_id,
	COALESCE(pinterest_pin_id, '') AS pinterest_pin_id,
	COALESCE(product_url, '') AS product_url,
	created_at, updated_at`

// ProductRepository reads the product catalog.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetProduct returns one product or domain.ErrNotFound.
func (r *ProductRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productSelectColumns + ` FROM products WHERE id = $1`

	var p domain.Product
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}
		return nil, persistence("get product", err)
	}
	return &p, nil
}

// ListProducts returns every product ordered by id.
func (r *ProductRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productSelectColumns + ` FROM products ORDER BY id`

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, persistence("list products", err)
	}
	return products, nil
}
