// Package tenant owns the tenant admission state machine and the student
// seat quota that the subscription plan grants.
package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/educore/educore/pkg/auth"
	"github.com/educore/educore/pkg/domain"
)

// TenantStore is the tenant persistence the lifecycle service depends on.
type TenantStore interface {
	CreateWithAdmin(ctx context.Context, tenant *domain.Tenant, admin *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	List(ctx context.Context, params domain.TenantListParams) ([]*domain.Tenant, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TenantStatus, reason *string) error
	UpdateSubscription(ctx context.Context, id uuid.UUID, upd domain.SubscriptionUpdate) (*domain.Tenant, error)
}

// UserStore is the user persistence the tenant services depend on.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	CreateStudentWithinQuota(ctx context.Context, user *domain.User) error
	CountStudents(ctx context.Context, tenantID uuid.UUID) (int, error)
	CountByRole(ctx context.Context, tenantID uuid.UUID) (map[domain.Role]int, error)
}

// TenantInfo is the school-facing half of a registration request.
type TenantInfo struct {
	Name         string
	Address      string
	ContactEmail string
	ContactPhone string
}

// AdminInfo describes the school_admin account created with the tenant.
type AdminInfo struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// PlanInfo selects the subscription plan. Zero values fall back to the
// small plan on a monthly cycle.
type PlanInfo struct {
	Plan         domain.Plan
	BillingCycle domain.BillingCycle
}

// Registration is the outcome of a successful tenant registration. It never
// carries the admin password.
type Registration struct {
	TenantID           uuid.UUID
	Name               string
	Plan               domain.Plan
	Status             domain.TenantStatus
	SubscriptionStatus domain.SubscriptionStatus
	TrialEndDate       time.Time
}

// Pagination describes a page of a list result.
type Pagination struct {
	Page  int
	Limit int
	Total int
	Pages int
}

// Service is the tenant lifecycle manager. All tenant status mutations go
// through it; nothing else writes status, plan, or quota fields.
type Service struct {
	tenants TenantStore
	users   UserStore
}

// NewService creates a new tenant lifecycle service.
func NewService(tenants TenantStore, users UserStore) *Service {
	return &Service{tenants: tenants, users: users}
}

// Register creates a tenant in the pending state together with its
// school_admin user. The two inserts are atomic: a duplicate admin email
// leaves no tenant behind.
func (s *Service) Register(ctx context.Context, tenantInfo TenantInfo, adminInfo AdminInfo, planInfo PlanInfo) (*Registration, error) {
	if err := validateRegistration(tenantInfo, adminInfo, planInfo); err != nil {
		return nil, err
	}

	plan := planInfo.Plan
	if plan == "" {
		plan = domain.PlanSmall
	}
	cycle := planInfo.BillingCycle
	if cycle == "" {
		cycle = domain.BillingMonthly
	}

	hash, err := auth.HashPassword(adminInfo.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tenant := &domain.Tenant{
		ID:                 uuid.New(),
		Name:               tenantInfo.Name,
		Address:            tenantInfo.Address,
		ContactEmail:       tenantInfo.ContactEmail,
		ContactPhone:       tenantInfo.ContactPhone,
		Plan:               plan,
		MaxStudents:        plan.MaxStudents(),
		Status:             domain.TenantPending,
		SubscriptionStatus: domain.SubscriptionTrial,
		BillingCycle:       cycle,
		TrialStart:         now,
		TrialEnd:           now.Add(domain.TrialPeriod),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	admin := &domain.User{
		ID:           uuid.New(),
		TenantID:     &tenant.ID,
		Email:        auth.NormalizeEmail(adminInfo.Email),
		FullName:     adminInfo.FullName,
		Phone:        adminInfo.Phone,
		PasswordHash: hash,
		Role:         domain.RoleSchoolAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.tenants.CreateWithAdmin(ctx, tenant, admin); err != nil {
		return nil, err
	}

	return &Registration{
		TenantID:           tenant.ID,
		Name:               tenant.Name,
		Plan:               tenant.Plan,
		Status:             tenant.Status,
		SubscriptionStatus: tenant.SubscriptionStatus,
		TrialEndDate:       tenant.TrialEnd,
	}, nil
}

func validateRegistration(tenantInfo TenantInfo, adminInfo AdminInfo, planInfo PlanInfo) error {
	verr := domain.NewValidationError()
	if tenantInfo.Name == "" {
		verr.Add("tenantInfo.name", "school name is required")
	}
	if adminInfo.Email == "" {
		verr.Add("adminInfo.email", "admin email is required")
	} else if err := auth.ValidateEmail(adminInfo.Email); err != nil {
		verr.Add("adminInfo.email", err.Error())
	}
	if adminInfo.Password == "" {
		verr.Add("adminInfo.password", "admin password is required")
	} else if err := auth.ValidatePassword(adminInfo.Password); err != nil {
		verr.Add("adminInfo.password", err.Error())
	}
	if adminInfo.FullName == "" {
		verr.Add("adminInfo.full_name", "admin full name is required")
	}
	if planInfo.Plan != "" && !planInfo.Plan.Valid() {
		verr.Add("planInfo.plan", "invalid plan selected")
	}
	if planInfo.BillingCycle != "" && !planInfo.BillingCycle.Valid() {
		verr.Add("planInfo.billing_cycle", "invalid billing cycle")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Get retrieves a tenant by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return s.tenants.GetByID(ctx, id)
}

// List retrieves a page of tenants for the system administrator.
func (s *Service) List(ctx context.Context, params domain.TenantListParams) ([]*domain.Tenant, *Pagination, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}

	tenants, total, err := s.tenants.List(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	pages := (total + params.Limit - 1) / params.Limit
	return tenants, &Pagination{
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
		Pages: pages,
	}, nil
}

// Approve moves a pending tenant to active. Approving an already-active
// tenant is a no-op success; any other source state is rejected.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if tenant.Status == domain.TenantActive {
		return tenant, nil
	}
	if tenant.Status != domain.TenantPending {
		return nil, domain.ErrInvalidStateTransition
	}

	if err := s.transition(ctx, id, tenant.Status, domain.TenantActive, nil); err != nil {
		return nil, err
	}
	return s.tenants.GetByID(ctx, id)
}

// Reject moves a pending tenant to rejected. A non-empty reason is
// required; it is stored on the tenant for the audit trail.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*domain.Tenant, error) {
	if reason == "" {
		verr := domain.NewValidationError()
		verr.Add("reason", "a rejection reason is required")
		return nil, verr
	}

	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.Status != domain.TenantPending {
		return nil, domain.ErrInvalidStateTransition
	}

	if err := s.transition(ctx, id, tenant.Status, domain.TenantRejected, &reason); err != nil {
		return nil, err
	}
	return s.tenants.GetByID(ctx, id)
}

// Suspend moves an active tenant to suspended. Outstanding session tokens
// of its users are rejected from the next validation onward.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.Status != domain.TenantActive {
		return nil, domain.ErrInvalidStateTransition
	}

	if err := s.transition(ctx, id, tenant.Status, domain.TenantSuspended, nil); err != nil {
		return nil, err
	}
	return s.tenants.GetByID(ctx, id)
}

// Reactivate moves a suspended tenant back to active.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.Status != domain.TenantSuspended {
		return nil, domain.ErrInvalidStateTransition
	}

	if err := s.transition(ctx, id, tenant.Status, domain.TenantActive, nil); err != nil {
		return nil, err
	}
	return s.tenants.GetByID(ctx, id)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to domain.TenantStatus, reason *string) error {
	if !from.CanTransitionTo(to) {
		return domain.ErrInvalidStateTransition
	}
	return s.tenants.UpdateStatus(ctx, id, from, to, reason)
}

// UpdateSubscription applies a billing-collaborator report. When the
// subscription resolves a trial, the tenant status follows: a paid trial
// becomes active, an expired one falls back to pending review.
func (s *Service) UpdateSubscription(ctx context.Context, id uuid.UUID, upd domain.SubscriptionUpdate) (*domain.Tenant, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		verr := domain.NewValidationError()
		verr.Add("subscription_status", "invalid subscription status")
		return nil, verr
	}
	if upd.BillingCycle != nil && !upd.BillingCycle.Valid() {
		verr := domain.NewValidationError()
		verr.Add("billing_cycle", "invalid billing cycle")
		return nil, verr
	}

	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil && tenant.Status == domain.TenantTrial {
		var next domain.TenantStatus
		switch *upd.Status {
		case domain.SubscriptionActive:
			next = domain.TenantActive
		case domain.SubscriptionExpired, domain.SubscriptionInactive:
			next = domain.TenantPending
		}
		if next != "" && tenant.Status.CanTransitionTo(next) {
			if err := s.tenants.UpdateStatus(ctx, id, tenant.Status, next, nil); err != nil {
				return nil, err
			}
		}
	}

	return s.tenants.UpdateSubscription(ctx, id, upd)
}

// Stats summarizes a tenant's per-role usage against its quota.
func (s *Service) Stats(ctx context.Context, id uuid.UUID) (*domain.Tenant, *domain.TenantStats, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	counts, err := s.users.CountByRole(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	stats := &domain.TenantStats{
		TotalStudents: counts[domain.RoleStudent],
		TotalTeachers: counts[domain.RoleTeacher],
		TotalParents:  counts[domain.RoleParent],
		TotalAdmins:   counts[domain.RoleSchoolAdmin],
		MaxStudents:   tenant.MaxStudents,
	}
	stats.StudentsUsed = stats.TotalStudents
	stats.StudentsLeft = tenant.MaxStudents - stats.TotalStudents
	if tenant.MaxStudents > 0 {
		stats.UsagePercentage = stats.TotalStudents * 100 / tenant.MaxStudents
	}

	return tenant, stats, nil
}
