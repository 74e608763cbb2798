package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/educore/educore/pkg/domain"
)

// MFASecretsRepository handles encrypted TOTP secret persistence.
type MFASecretsRepository struct {
	db *sql.DB
}

// NewMFASecretsRepository creates a new MFA secrets repository.
func NewMFASecretsRepository(db *sql.DB) *MFASecretsRepository {
	return &MFASecretsRepository{db: db}
}

// Upsert stores a user's encrypted secret, replacing any previous one.
func (r *MFASecretsRepository) Upsert(ctx context.Context, secret *domain.MFASecret) error {
	query := `
		INSERT INTO mfa_secrets (id, user_id, secret_encrypted, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET secret_encrypted = EXCLUDED.secret_encrypted,
		              created_at = EXCLUDED.created_at,
		              last_used_at = NULL
	`
	_, err := r.db.ExecContext(ctx, query,
		secret.ID, secret.UserID, secret.SecretEncrypted, secret.CreatedAt,
	)
	return err
}

// GetByUserID retrieves a user's encrypted secret.
func (r *MFASecretsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.MFASecret, error) {
	query := `
		SELECT id, user_id, secret_encrypted, created_at, last_used_at
		FROM mfa_secrets
		WHERE user_id = $1
	`
	var s domain.MFASecret
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.SecretEncrypted, &s.CreatedAt, &s.LastUsedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMFANotEnabled
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// MarkUsed stamps the secret's last successful verification.
func (r *MFASecretsRepository) MarkUsed(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE mfa_secrets SET last_used_at = NOW() WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// Delete removes a user's secret.
func (r *MFASecretsRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM mfa_secrets WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
