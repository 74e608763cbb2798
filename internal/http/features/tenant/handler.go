// Package tenant exposes the tenant lifecycle and user admission endpoints.
package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/educore/educore/internal/httputil"
	"github.com/educore/educore/internal/http/middleware"
	"github.com/educore/educore/internal/obs"
	"github.com/educore/educore/pkg/domain"
	"github.com/educore/educore/pkg/tenant"
)

type Handler struct {
	logger    *slog.Logger
	lifecycle *tenant.Service
	quota     *tenant.QuotaEnforcer
}

func NewHandler(logger *slog.Logger, lifecycle *tenant.Service, quota *tenant.QuotaEnforcer) *Handler {
	return &Handler{logger: logger, lifecycle: lifecycle, quota: quota}
}

type tenantInfoRequest struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
}

type adminInfoRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

type planInfoRequest struct {
	Plan         string `json:"plan"`
	BillingCycle string `json:"billingCycle"`
}

type registerRequest struct {
	TenantInfo tenantInfoRequest `json:"tenantInfo"`
	AdminInfo  adminInfoRequest  `json:"adminInfo"`
	PlanInfo   planInfoRequest   `json:"planInfo"`
}

type registrationResponse struct {
	TenantID           string    `json:"tenantId"`
	Name               string    `json:"name"`
	Plan               string    `json:"plan"`
	Status             string    `json:"status"`
	SubscriptionStatus string    `json:"subscriptionStatus"`
	TrialEndDate       time.Time `json:"trialEndDate"`
}

type tenantResponse struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Address            string     `json:"address,omitempty"`
	ContactEmail       string     `json:"contactEmail,omitempty"`
	ContactPhone       string     `json:"contactPhone,omitempty"`
	Plan               string     `json:"plan"`
	MaxStudents        int        `json:"maxStudents"`
	Status             string     `json:"status"`
	RejectionReason    *string    `json:"rejectionReason,omitempty"`
	SubscriptionStatus string     `json:"subscriptionStatus"`
	BillingCycle       string     `json:"billingCycle"`
	TrialStartDate     time.Time  `json:"trialStartDate"`
	TrialEndDate       time.Time  `json:"trialEndDate"`
	SubscriptionStart  *time.Time `json:"subscriptionStart,omitempty"`
	SubscriptionEnd    *time.Time `json:"subscriptionEnd,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func toTenantResponse(t *domain.Tenant) tenantResponse {
	return tenantResponse{
		ID:                 t.ID.String(),
		Name:               t.Name,
		Address:            t.Address,
		ContactEmail:       t.ContactEmail,
		ContactPhone:       t.ContactPhone,
		Plan:               string(t.Plan),
		MaxStudents:        t.MaxStudents,
		Status:             string(t.Status),
		RejectionReason:    t.RejectionReason,
		SubscriptionStatus: string(t.SubscriptionStatus),
		BillingCycle:       string(t.BillingCycle),
		TrialStartDate:     t.TrialStart,
		TrialEndDate:       t.TrialEnd,
		SubscriptionStart:  t.SubscriptionStart,
		SubscriptionEnd:    t.SubscriptionEnd,
		CreatedAt:          t.CreatedAt,
	}
}

type userResponse struct {
	ID        string  `json:"id"`
	TenantID  *string `json:"tenantId,omitempty"`
	Email     string  `json:"email"`
	FullName  string  `json:"fullName"`
	Phone     string  `json:"phone,omitempty"`
	Role      string  `json:"role"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"createdAt"`
}

func toUserResponse(u *domain.User) userResponse {
	resp := userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
	if u.TenantID != nil {
		id := u.TenantID.String()
		resp.TenantID = &id
	}
	return resp
}

// Register handles the public self-service tenant signup.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reg, err := h.lifecycle.Register(r.Context(),
		tenant.TenantInfo{
			Name:         req.TenantInfo.Name,
			Address:      req.TenantInfo.Address,
			ContactEmail: req.TenantInfo.ContactEmail,
			ContactPhone: req.TenantInfo.ContactPhone,
		},
		tenant.AdminInfo{
			Email:    req.AdminInfo.Email,
			Password: req.AdminInfo.Password,
			FullName: req.AdminInfo.FullName,
			Phone:    req.AdminInfo.Phone,
		},
		tenant.PlanInfo{
			Plan:         domain.Plan(req.PlanInfo.Plan),
			BillingCycle: domain.BillingCycle(req.PlanInfo.BillingCycle),
		},
	)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info("tenant registered", "tenant_id", reg.TenantID, "name", reg.Name, "plan", reg.Plan)
	httputil.JSON(w, http.StatusCreated, "school registered successfully, pending approval", registrationResponse{
		TenantID:           reg.TenantID.String(),
		Name:               reg.Name,
		Plan:               string(reg.Plan),
		Status:             string(reg.Status),
		SubscriptionStatus: string(reg.SubscriptionStatus),
		TrialEndDate:       reg.TrialEndDate,
	})
}

// List returns a page of tenants for the system administrator.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := domain.TenantListParams{
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 10),
		Search: r.URL.Query().Get("search"),
	}

	tenants, page, err := h.lifecycle.List(r.Context(), params)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	items := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		items = append(items, toTenantResponse(t))
	}

	httputil.JSON(w, http.StatusOK, "", map[string]any{
		"tenants": items,
		"pagination": map[string]int{
			"page":  page.Page,
			"limit": page.Limit,
			"total": page.Total,
			"pages": page.Pages,
		},
	})
}

// Get returns a single tenant. Non-sys_admin callers may only read their
// own tenant.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.scopedTenantID(w, r)
	if !ok {
		return
	}

	t, err := h.lifecycle.Get(r.Context(), tenantID)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, "", toTenantResponse(t))
}

// Stats returns the tenant's per-role usage against its quota.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.scopedTenantID(w, r)
	if !ok {
		return
	}

	t, stats, err := h.lifecycle.Stats(r.Context(), tenantID)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, "", map[string]any{
		"tenantId":        t.ID.String(),
		"name":            t.Name,
		"plan":            string(t.Plan),
		"totalStudents":   stats.TotalStudents,
		"totalTeachers":   stats.TotalTeachers,
		"totalParents":    stats.TotalParents,
		"totalAdmins":     stats.TotalAdmins,
		"maxStudents":     stats.MaxStudents,
		"studentsLeft":    stats.StudentsLeft,
		"usagePercentage": stats.UsagePercentage,
	})
}

// CheckLimit answers the advisory seat check for a prospective batch of
// students.
func (h *Handler) CheckLimit(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.scopedTenantID(w, r)
	if !ok {
		return
	}

	check, err := h.quota.CanAddStudents(r.Context(), tenantID, queryInt(r, "count", 1))
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, "", check)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// CreateUser admits a tenant-scoped account, enforcing the student seat
// quota for student accounts.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.scopedTenantID(w, r)
	if !ok {
		return
	}

	var req createUserRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.quota.AdmitUser(r.Context(), tenantID, tenant.NewUserParams{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			obs.QuotaDenied()
			h.logger.Warn("student admission denied by quota", "tenant_id", tenantID)
		}
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, "user created successfully", toUserResponse(user))
}

// Approve moves a pending tenant to active.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "tenant approved", func(r *http.Request, id uuid.UUID) (*domain.Tenant, error) {
		return h.lifecycle.Approve(r.Context(), id)
	})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject moves a pending tenant to rejected with an audit reason.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.statusAction(w, r, "tenant rejected", func(r *http.Request, id uuid.UUID) (*domain.Tenant, error) {
		return h.lifecycle.Reject(r.Context(), id, req.Reason)
	})
}

// Suspend moves an active tenant to suspended.
func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "tenant suspended", func(r *http.Request, id uuid.UUID) (*domain.Tenant, error) {
		return h.lifecycle.Suspend(r.Context(), id)
	})
}

// Reactivate moves a suspended tenant back to active.
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "tenant reactivated", func(r *http.Request, id uuid.UUID) (*domain.Tenant, error) {
		return h.lifecycle.Reactivate(r.Context(), id)
	})
}

type subscriptionRequest struct {
	Status            *string    `json:"subscriptionStatus"`
	BillingCycle      *string    `json:"billingCycle"`
	SubscriptionStart *time.Time `json:"subscriptionStart"`
	SubscriptionEnd   *time.Time `json:"subscriptionEnd"`
}

// UpdateSubscription applies a billing report to the tenant.
func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := parseTenantID(w, r)
	if !ok {
		return
	}

	var req subscriptionRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := domain.SubscriptionUpdate{
		SubscriptionStart: req.SubscriptionStart,
		SubscriptionEnd:   req.SubscriptionEnd,
	}
	if req.Status != nil {
		status := domain.SubscriptionStatus(*req.Status)
		upd.Status = &status
	}
	if req.BillingCycle != nil {
		cycle := domain.BillingCycle(*req.BillingCycle)
		upd.BillingCycle = &cycle
	}

	t, err := h.lifecycle.UpdateSubscription(r.Context(), tenantID, upd)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info("subscription updated", "tenant_id", tenantID, "status", t.SubscriptionStatus)
	httputil.JSON(w, http.StatusOK, "subscription updated", toTenantResponse(t))
}

func (h *Handler) statusAction(w http.ResponseWriter, r *http.Request, message string, fn func(*http.Request, uuid.UUID) (*domain.Tenant, error)) {
	tenantID, ok := parseTenantID(w, r)
	if !ok {
		return
	}

	t, err := fn(r, tenantID)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info(message, "tenant_id", tenantID, "status", t.Status)
	httputil.JSON(w, http.StatusOK, message, toTenantResponse(t))
}

// scopedTenantID parses the tenant ID from the URL and enforces tenant
// scoping against the authenticated identity.
func (h *Handler) scopedTenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, ok := parseTenantID(w, r)
	if !ok {
		return uuid.Nil, false
	}

	identity := middleware.Identity(r.Context())
	if identity == nil || !identity.CanAccessTenant(tenantID) {
		httputil.DomainError(w, domain.ErrForbidden)
		return uuid.Nil, false
	}
	return tenantID, true
}

func parseTenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid tenant id")
		return uuid.Nil, false
	}
	return tenantID, true
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
