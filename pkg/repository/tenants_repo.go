package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/educore/educore/pkg/domain"
)

// TenantsRepository handles tenant persistence.
type TenantsRepository struct {
	db *sql.DB
}

// NewTenantsRepository creates a new tenants repository.
func NewTenantsRepository(db *sql.DB) *TenantsRepository {
	return &TenantsRepository{db: db}
}

const tenantColumns = `
	id, name, address, contact_email, contact_phone, plan, max_students,
	status, rejection_reason, subscription_status, billing_cycle,
	trial_start, trial_end, subscription_start, subscription_end,
	created_at, updated_at, deleted_at
`

func scanTenant(row interface{ Scan(...any) error }) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(
		&t.ID, &t.Name, &t.Address, &t.ContactEmail, &t.ContactPhone,
		&t.Plan, &t.MaxStudents, &t.Status, &t.RejectionReason,
		&t.SubscriptionStatus, &t.BillingCycle,
		&t.TrialStart, &t.TrialEnd, &t.SubscriptionStart, &t.SubscriptionEnd,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateWithAdmin creates a tenant and its school_admin user in a single
// transaction. A duplicate admin email rolls back the tenant insert so no
// partial registration is ever visible.
func (r *TenantsRepository) CreateWithAdmin(ctx context.Context, tenant *domain.Tenant, admin *domain.User) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tenants (
				id, name, address, contact_email, contact_phone, plan,
				max_students, status, subscription_status, billing_cycle,
				trial_start, trial_end, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`,
			tenant.ID, tenant.Name, tenant.Address, tenant.ContactEmail,
			tenant.ContactPhone, tenant.Plan, tenant.MaxStudents,
			tenant.Status, tenant.SubscriptionStatus, tenant.BillingCycle,
			tenant.TrialStart, tenant.TrialEnd, tenant.CreatedAt, tenant.UpdatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO users (
				id, tenant_id, email, full_name, phone, password_hash,
				role, active, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			admin.ID, admin.TenantID, admin.Email, admin.FullName, admin.Phone,
			admin.PasswordHash, admin.Role, admin.Active,
			admin.CreatedAt, admin.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return err
	})
}

// GetByID retrieves a tenant by ID.
func (r *TenantsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE id = $1 AND deleted_at IS NULL
	`
	tenant, err := scanTenant(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// List retrieves a page of tenants, optionally filtered by a
// case-insensitive search over name and contact email. It returns the page
// and the total match count.
func (r *TenantsRepository) List(ctx context.Context, params domain.TenantListParams) ([]*domain.Tenant, int, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	where := `deleted_at IS NULL`
	args := []any{}
	if params.Search != "" {
		where += ` AND (name ILIKE $1 OR contact_email ILIKE $1)`
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM tenants WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tenants
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, tenantColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, tenant)
	}

	return tenants, total, rows.Err()
}

// UpdateStatus moves a tenant from one status to another. The write is
// conditional on the expected prior status so a concurrent transition can
// never be overwritten. A zero-row update on an existing tenant means its
// status changed underneath the caller.
func (r *TenantsRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TenantStatus, reason *string) error {
	query := `
		UPDATE tenants
		SET status = $3, rejection_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, from, to, reason)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var current domain.TenantStatus
		err := r.db.QueryRowContext(ctx,
			`SELECT status FROM tenants WHERE id = $1 AND deleted_at IS NULL`, id,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrTenantNotFound
		}
		if err != nil {
			return err
		}
		return domain.ErrInvalidStateTransition
	}

	return nil
}

// UpdateSubscription applies a billing-collaborator update. Nil fields keep
// their stored value.
func (r *TenantsRepository) UpdateSubscription(ctx context.Context, id uuid.UUID, upd domain.SubscriptionUpdate) (*domain.Tenant, error) {
	query := `
		UPDATE tenants
		SET subscription_status = COALESCE($2, subscription_status),
		    billing_cycle = COALESCE($3, billing_cycle),
		    subscription_start = COALESCE($4, subscription_start),
		    subscription_end = COALESCE($5, subscription_end),
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + tenantColumns + `
	`
	tenant, err := scanTenant(r.db.QueryRowContext(ctx, query,
		id, upd.Status, upd.BillingCycle, upd.SubscriptionStart, upd.SubscriptionEnd,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}
