package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
)

// IdentityRepository encapsulates staff identity lookups.
type IdentityRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	// ListByPhoneVariants returns active identities whose normalized phone
	// matches any of the given representations, scoped to the tenant plus
	// platform-wide staff (NULL tenant).
	ListByPhoneVariants(ctx context.Context, tenantID string, variants []string) ([]domain.Identity, error)
	ListByRoles(ctx context.Context, tenantID string, roles []domain.Role) ([]domain.Identity, error)
}

type identityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository instantiates repository.
func NewIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &identityRepository{pool: pool}
}

const identityColumns = `id, tenant_id, name, phone, phone_normalized, role, role_level, active, created_at, updated_at`

func (r *identityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanIdentity(row)
}

func (r *identityRepository) ListByPhoneVariants(ctx context.Context, tenantID string, variants []string) ([]domain.Identity, error) {
	if len(variants) == 0 {
		return nil, nil
	}
	const query = `
        SELECT ` + identityColumns + `
        FROM identities
        WHERE phone_normalized = ANY($1)
          AND active
          AND (tenant_id = $2 OR tenant_id IS NULL)
        ORDER BY created_at ASC`
	return r.list(ctx, query, variants, tenantID)
}

func (r *identityRepository) ListByRoles(ctx context.Context, tenantID string, roles []domain.Role) ([]domain.Identity, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	const query = `
        SELECT ` + identityColumns + `
        FROM identities
        WHERE role = ANY($1)
          AND active
          AND tenant_id = $2
        ORDER BY role_level DESC, created_at ASC`
	return r.list(ctx, query, roles, tenantID)
}

func (r *identityRepository) list(ctx context.Context, query string, args ...any) ([]domain.Identity, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var identities []domain.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, *identity)
	}
	return identities, rows.Err()
}

func scanIdentity(row rowScanner) (*domain.Identity, error) {
	var identity domain.Identity
	if err := row.Scan(
		&identity.ID,
		&identity.TenantID,
		&identity.Name,
		&identity.Phone,
		&identity.PhoneNormalized,
		&identity.Role,
		&identity.RoleLevel,
		&identity.Active,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &identity, nil
}
