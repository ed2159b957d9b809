package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// linkSelectColumns expects affiliate_links aliased as l and products as p.
const linkSelectColumns = `l.id, l.product_id, COALESCE(p.name, '') AS product_name,
	l.platform, l.program_name, l.commission_rate, l.cookie_days,
	l.tracking_url, l.destination_url, l.is_official, l.status,
	l.created_at, l.updated_at`

// LinkRepository persists affiliate links.
type LinkRepository struct {
	db *sqlx.DB
}

// NewLinkRepository creates a new link repository.
func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// SupersedeAndCreate invalidates every live link for (product, platform) and
// inserts link as the active one in a single transaction. A transaction-scoped
// advisory lock serializes writers across processes; the partial unique index
// on active links catches anything that slips past it.
func (r *LinkRepository) SupersedeAndCreate(ctx context.Context, link *domain.AffiliateLink) (*domain.AffiliateLink, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistence("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	key := domain.LinkKey{ProductID: link.ProductID, Platform: link.Platform}
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
		return nil, persistence("acquire advisory lock", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE affiliate_links
		SET status = $3, updated_at = NOW()
		WHERE product_id = $1 AND platform = $2 AND status <> $3
	`, link.ProductID, link.Platform, domain.LinkStatusInvalid); err != nil {
		return nil, persistence("supersede links", err)
	}

	var id int64
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO affiliate_links (
			product_id, platform, program_name, commission_rate, cookie_days,
			tracking_url, destination_url, is_official, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		link.ProductID, link.Platform, link.ProgramName, link.CommissionRate, link.CookieDays,
		link.TrackingURL, link.DestinationURL, link.IsOfficial, domain.LinkStatusActive,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert link %s: %w", key, domain.ErrConcurrentGeneration)
		}
		return nil, persistence("insert link", err)
	}

	var created domain.AffiliateLink
	query := `SELECT ` + linkSelectColumns + `
		FROM affiliate_links l LEFT JOIN products p ON p.id = l.product_id
		WHERE l.id = $1`
	if err = tx.GetContext(ctx, &created, query, id); err != nil {
		return nil, persistence("read created link", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, persistence("commit link", err)
	}
	return &created, nil
}

// UpdateTerms rewrites commission and cookie window on an active link.
func (r *LinkRepository) UpdateTerms(ctx context.Context, id int64, rate float64, cookieDays int) (*domain.AffiliateLink, error) {
	query := `
		WITH updated AS (
			UPDATE affiliate_links
			SET commission_rate = $2, cookie_days = $3, updated_at = NOW()
			WHERE id = $1 AND status = $4
			RETURNING *
		)
		SELECT ` + linkSelectColumns + `
		FROM updated l LEFT JOIN products p ON p.id = l.product_id`

	var link domain.AffiliateLink
	if err := r.db.GetContext(ctx, &link, query, id, rate, cookieDays, domain.LinkStatusActive); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("active link %d: %w", id, domain.ErrNotFound)
		}
		return nil, persistence("update link terms", err)
	}
	return &link, nil
}

// UpdateStatus moves a link from one status to another. It reports false when
// the row was no longer in the expected status.
func (r *LinkRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.LinkStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE affiliate_links
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, persistence("update link status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, persistence("update link status", err)
	}
	return n > 0, nil
}

// GetLink returns one link or domain.ErrNotFound.
func (r *LinkRepository) GetLink(ctx context.Context, id int64) (*domain.AffiliateLink, error) {
	query := `SELECT ` + linkSelectColumns + `
		FROM affiliate_links l LEFT JOIN products p ON p.id = l.product_id
		WHERE l.id = $1`

	var link domain.AffiliateLink
	if err := r.db.GetContext(ctx, &link, query, id); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("link %d: %w", id, domain.ErrNotFound)
		}
		return nil, persistence("get link", err)
	}
	return &link, nil
}

// DeleteLink removes a link row.
func (r *LinkRepository) DeleteLink(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM affiliate_links WHERE id = $1`, id)
	return execRequireRows(result, err, "delete link", fmt.Errorf("link %d: %w", id, domain.ErrNotFound))
}

// ListLinksForProduct returns every link for a product, newest first.
func (r *LinkRepository) ListLinksForProduct(ctx context.Context, productID int64) ([]domain.AffiliateLink, error) {
	query := `SELECT ` + linkSelectColumns + `
		FROM affiliate_links l LEFT JOIN products p ON p.id = l.product_id
		WHERE l.product_id = $1
		ORDER BY l.created_at DESC, l.id DESC`

	links := []domain.AffiliateLink{}
	if err := r.db.SelectContext(ctx, &links, query, productID); err != nil {
		return nil, persistence("list links", err)
	}
	return links, nil
}

// ListActivePairs returns the (product, platform) pairs among productIDs that
// already have an active link.
func (r *LinkRepository) ListActivePairs(ctx context.Context, productIDs []int64) ([]domain.LinkKey, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	var keys []domain.LinkKey
	err := r.db.SelectContext(ctx, &keys, `
		SELECT product_id, platform
		FROM affiliate_links
		WHERE status = $1 AND product_id = ANY($2)
		ORDER BY product_id, platform
	`, domain.LinkStatusActive, pq.Array(productIDs))
	if err != nil {
		return nil, persistence("list active links", err)
	}
	return keys, nil
}
