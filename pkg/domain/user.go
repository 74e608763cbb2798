package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account. Every user belongs to exactly one tenant,
// except sys_admin accounts which are tenant-less.
type User struct {
	ID           uuid.UUID
	TenantID     *uuid.UUID
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	Role         Role
	Active       bool
	MFAEnabled   bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsTenantScoped returns true for roles that require a tenant.
func (u *User) IsTenantScoped() bool {
	return u.Role != RoleSysAdmin
}

// MFASecret is an encrypted TOTP secret for a user.
type MFASecret struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	SecretEncrypted string
	CreatedAt       time.Time
	LastUsedAt      *time.Time
}
