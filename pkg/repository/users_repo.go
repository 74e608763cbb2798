package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/educore/educore/pkg/domain"
)

// UsersRepository handles user persistence.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

const userColumns = `
	id, tenant_id, email, full_name, phone, password_hash, role, active,
	mfa_enabled, last_login, created_at, updated_at, deleted_at
`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.Phone, &u.PasswordHash,
		&u.Role, &u.Active, &u.MFAEnabled, &u.LastLogin,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const insertUserQuery = `
	INSERT INTO users (
		id, tenant_id, email, full_name, phone, password_hash,
		role, active, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Create creates a user. Student users must go through
// CreateStudentWithinQuota instead so the seat limit is enforced.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx, insertUserQuery,
		user.ID, user.TenantID, user.Email, user.FullName, user.Phone,
		user.PasswordHash, user.Role, user.Active, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrEmailExists
	}
	return err
}

// CreateStudentWithinQuota creates a student user only if the tenant has a
// free seat. The tenant row is locked for the duration of the transaction,
// serializing concurrent admissions so the count can never overshoot
// max_students.
func (r *UsersRepository) CreateStudentWithinQuota(ctx context.Context, user *domain.User) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		var maxStudents int
		err := tx.QueryRowContext(ctx, `
			SELECT max_students
			FROM tenants
			WHERE id = $1 AND deleted_at IS NULL
			FOR UPDATE
		`, user.TenantID).Scan(&maxStudents)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrTenantNotFound
		}
		if err != nil {
			return err
		}

		var count int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM users
			WHERE tenant_id = $1 AND role = 'student' AND deleted_at IS NULL
		`, user.TenantID).Scan(&count)
		if err != nil {
			return err
		}

		if count+1 > maxStudents {
			return domain.ErrQuotaExceeded
		}

		_, err = tx.ExecContext(ctx, insertUserQuery,
			user.ID, user.TenantID, user.Email, user.FullName, user.Phone,
			user.PasswordHash, user.Role, user.Active, user.CreatedAt, user.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return err
	})
}

// GetByID retrieves a user by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves a user by case-normalized email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateLastLogin stamps the user's last successful login.
func (r *UsersRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET last_login = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// SetMFAEnabled updates the MFA enabled flag for a user.
func (r *UsersRepository) SetMFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	query := `
		UPDATE users
		SET mfa_enabled = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, enabled)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// CountStudents counts active student users in a tenant.
func (r *UsersRepository) CountStudents(ctx context.Context, tenantID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM users
		WHERE tenant_id = $1 AND role = 'student' AND deleted_at IS NULL
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(&count)
	return count, err
}

// CountByRole counts a tenant's users grouped by role.
func (r *UsersRepository) CountByRole(ctx context.Context, tenantID uuid.UUID) (map[domain.Role]int, error) {
	query := `
		SELECT role, COUNT(*)
		FROM users
		WHERE tenant_id = $1 AND deleted_at IS NULL
		GROUP BY role
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Role]int)
	for rows.Next() {
		var role domain.Role
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, err
		}
		counts[role] = count
	}

	return counts, rows.Err()
}
