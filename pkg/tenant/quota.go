package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/educore/educore/pkg/auth"
	"github.com/educore/educore/pkg/domain"
)

// QuotaCheck reports whether a batch of students fits into a tenant's
// remaining seats. The JSON keys are part of the public API.
type QuotaCheck struct {
	CanAdd       bool `json:"canAdd"`
	CurrentCount int  `json:"currentCount"`
	MaxAllowed   int  `json:"maxAllowed"`
	NewTotal     int  `json:"newTotal"`
	Remaining    int  `json:"remaining"`
}

// NewUserParams describes a tenant-scoped account to admit.
type NewUserParams struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     domain.Role
}

// QuotaEnforcer admits users into a tenant. Student admissions are checked
// against the plan's seat limit; the count-and-insert runs inside a
// per-tenant lock in the store, so concurrent admissions cannot overshoot.
type QuotaEnforcer struct {
	tenants TenantStore
	users   UserStore
}

// NewQuotaEnforcer creates a new quota enforcer.
func NewQuotaEnforcer(tenants TenantStore, users UserStore) *QuotaEnforcer {
	return &QuotaEnforcer{tenants: tenants, users: users}
}

// CanAddStudents answers the advisory limit check. It is a snapshot, not a
// reservation: only AdmitUser holds the lock that makes the answer binding.
func (q *QuotaEnforcer) CanAddStudents(ctx context.Context, tenantID uuid.UUID, additional int) (*QuotaCheck, error) {
	if additional < 1 {
		verr := domain.NewValidationError()
		verr.Add("count", "count must be at least 1")
		return nil, verr
	}

	tenant, err := q.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	current, err := q.users.CountStudents(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	newTotal := current + additional
	return &QuotaCheck{
		CanAdd:       newTotal <= tenant.MaxStudents,
		CurrentCount: current,
		MaxAllowed:   tenant.MaxStudents,
		NewTotal:     newTotal,
		Remaining:    tenant.MaxStudents - current,
	}, nil
}

// AdmitUser creates a tenant-scoped account. Students consume a seat and
// are rejected with ErrQuotaExceeded when the tenant is full; teacher,
// parent, and school_admin accounts are not limited.
func (q *QuotaEnforcer) AdmitUser(ctx context.Context, tenantID uuid.UUID, params NewUserParams) (*domain.User, error) {
	if err := validateNewUser(params); err != nil {
		return nil, err
	}

	tenant, err := q.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.AllowsAccess(time.Now()) {
		return nil, domain.ErrTenantInactive
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		TenantID:     &tenantID,
		Email:        auth.NormalizeEmail(params.Email),
		FullName:     params.FullName,
		Phone:        params.Phone,
		PasswordHash: hash,
		Role:         params.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if params.Role == domain.RoleStudent {
		err = q.users.CreateStudentWithinQuota(ctx, user)
	} else {
		err = q.users.Create(ctx, user)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func validateNewUser(params NewUserParams) error {
	verr := domain.NewValidationError()
	if params.Email == "" {
		verr.Add("email", "email is required")
	} else if err := auth.ValidateEmail(params.Email); err != nil {
		verr.Add("email", err.Error())
	}
	if params.Password == "" {
		verr.Add("password", "password is required")
	} else if err := auth.ValidatePassword(params.Password); err != nil {
		verr.Add("password", err.Error())
	}
	if params.FullName == "" {
		verr.Add("full_name", "full name is required")
	}
	if !params.Role.Valid() || params.Role == domain.RoleSysAdmin {
		verr.Add("role", "invalid role for a tenant account")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}
