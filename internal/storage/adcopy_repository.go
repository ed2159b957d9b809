package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

const adCopySelectColumns = `id, product_id, ad_type, headline, body, cta,
	platform_data, performance_score,
	COALESCE(custom_instructions, '') AS custom_instructions,
	source, created_at`

// AdCopyRepository persists generated ad copy. Rows are append-only.
type AdCopyRepository struct {
	db *sqlx.DB
}

// NewAdCopyRepository creates a new ad copy repository.
func NewAdCopyRepository(db *sqlx.DB) *AdCopyRepository {
	return &AdCopyRepository{db: db}
}

// InsertAdCopy stores a new row and returns it with id and created_at set.
// Missing platform data is stored as an empty object.
func (r *AdCopyRepository) InsertAdCopy(ctx context.Context, adCopy *domain.GeneratedAdCopy) (*domain.GeneratedAdCopy, error) {
	var platformData any
	if len(adCopy.PlatformData) > 0 {
		platformData = string(adCopy.PlatformData)
	}

	stored := *adCopy
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO ad_copies (
			product_id, ad_type, headline, body, cta,
			platform_data, performance_score, custom_instructions, source
		) VALUES ($1, $2, $3, $4, $5, COALESCE($6::jsonb, '{}'::jsonb), $7, NULLIF($8, ''), $9)
		RETURNING id, created_at
	`,
		adCopy.ProductID, adCopy.AdType, adCopy.Headline, adCopy.Body, adCopy.CTA,
		platformData, adCopy.PerformanceScore, adCopy.CustomInstructions, adCopy.Source,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, persistence("insert ad copy", err)
	}
	return &stored, nil
}

// ListAdCopiesForProduct returns a product's ad copy history, newest first.
func (r *AdCopyRepository) ListAdCopiesForProduct(ctx context.Context, productID int64) ([]domain.GeneratedAdCopy, error) {
	query := `SELECT ` + adCopySelectColumns + `
		FROM ad_copies
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC`

	copies := []domain.GeneratedAdCopy{}
	if err := r.db.SelectContext(ctx, &copies, query, productID); err != nil {
		return nil, persistence("list ad copies", err)
	}
	return copies, nil
}
