package domain

import (
	"time"

	"github.com/google/uuid"
)

// Plan identifies a subscription plan. The plan fixes the student seat
// ceiling at tenant creation time.
type Plan string

const (
	PlanSmall  Plan = "small"
	PlanMedium Plan = "medium"
	PlanLarge  Plan = "large"
)

// Valid returns true if the plan is one of the known plans.
func (p Plan) Valid() bool {
	switch p {
	case PlanSmall, PlanMedium, PlanLarge:
		return true
	}
	return false
}

// MaxStudents returns the student seat ceiling for the plan.
func (p Plan) MaxStudents() int {
	switch p {
	case PlanMedium:
		return 700
	case PlanLarge:
		return 900
	default:
		return 300
	}
}

// TenantStatus represents the admission state of a tenant.
type TenantStatus string

const (
	TenantTrial     TenantStatus = "trial"
	TenantPending   TenantStatus = "pending"
	TenantActive    TenantStatus = "active"
	TenantRejected  TenantStatus = "rejected"
	TenantSuspended TenantStatus = "suspended"
)

// tenantTransitions is the complete set of permitted status changes.
// Anything not listed fails with ErrInvalidStateTransition.
var tenantTransitions = map[TenantStatus]map[TenantStatus]bool{
	TenantPending: {
		TenantActive:   true,
		TenantRejected: true,
	},
	TenantActive: {
		TenantSuspended: true,
	},
	TenantSuspended: {
		TenantActive: true,
	},
	// Trial tenants are moved by the billing collaborator once the grace
	// period resolves: paid (active), unpaid (pending review), or suspended.
	TenantTrial: {
		TenantActive:    true,
		TenantPending:   true,
		TenantSuspended: true,
	},
}

// CanTransitionTo reports whether the status change is permitted.
func (s TenantStatus) CanTransitionTo(next TenantStatus) bool {
	return tenantTransitions[s][next]
}

// SubscriptionStatus represents the billing state reported by the payment
// collaborator. It is tracked independently of the admission status.
type SubscriptionStatus string

const (
	SubscriptionTrial    SubscriptionStatus = "trial"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionPending  SubscriptionStatus = "pending"
)

// Valid returns true if the subscription status is known.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionTrial, SubscriptionActive, SubscriptionInactive,
		SubscriptionExpired, SubscriptionPending:
		return true
	}
	return false
}

// BillingCycle is the subscription billing interval.
type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
)

// Valid returns true if the billing cycle is known.
func (c BillingCycle) Valid() bool {
	return c == BillingMonthly || c == BillingYearly
}

// TrialPeriod is the grace window granted to self-service trial tenants.
const TrialPeriod = 14 * 24 * time.Hour

// Tenant represents an isolated school account. Tenants are never hard
// deleted; rejection and suspension are soft states.
type Tenant struct {
	ID                 uuid.UUID
	Name               string
	Address            string
	ContactEmail       string
	ContactPhone       string
	Plan               Plan
	MaxStudents        int
	Status             TenantStatus
	RejectionReason    *string
	SubscriptionStatus SubscriptionStatus
	BillingCycle       BillingCycle
	TrialStart         time.Time
	TrialEnd           time.Time
	SubscriptionStart  *time.Time
	SubscriptionEnd    *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

// AllowsAccess reports whether users of the tenant may authenticate at the
// given instant. Active tenants always allow access; trial tenants allow it
// only inside the grace window. Every other status rejects.
func (t *Tenant) AllowsAccess(now time.Time) bool {
	switch t.Status {
	case TenantActive:
		return true
	case TenantTrial:
		return now.Before(t.TrialEnd)
	default:
		return false
	}
}

// SubscriptionUpdate carries the fields the billing collaborator may change.
// Nil pointers leave the stored value untouched.
type SubscriptionUpdate struct {
	Status            *SubscriptionStatus
	BillingCycle      *BillingCycle
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time
}

// TenantListParams selects a page of tenants, optionally filtered by a
// case-insensitive search over name and contact email.
type TenantListParams struct {
	Page   int
	Limit  int
	Search string
}

// TenantStats summarizes per-role usage against the tenant's quota.
type TenantStats struct {
	TotalStudents   int
	TotalTeachers   int
	TotalParents    int
	TotalAdmins     int
	MaxStudents     int
	StudentsUsed    int
	StudentsLeft    int
	UsagePercentage int
}
