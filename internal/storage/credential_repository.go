package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// CredentialRepository reads affiliate credentials. The engine never writes them.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// GetCredential returns the preferred credential for platform: active before
// inactive, then most recently updated. No row is nil, nil.
func (r *CredentialRepository) GetCredential(ctx context.Context, platform domain.Platform) (*domain.Credential, error) {
	query := `
		SELECT platform,
		       COALESCE(affiliate_id, '') AS affiliate_id,
		       COALESCE(shop_id, '') AS shop_id,
		       COALESCE(account_name, '') AS account_name,
		       is_active, is_verified
		FROM affiliate_credentials
		WHERE platform = $1
		ORDER BY is_active DESC, updated_at DESC
		LIMIT 1
	`

	var cred domain.Credential
	if err := r.db.GetContext(ctx, &cred, query, platform); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, persistence("get credential", err)
	}
	return &cred, nil
}
