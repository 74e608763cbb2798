package domain

import (
	"testing"
	"time"
)

func TestPlanMaxStudents(t *testing.T) {
	tests := []struct {
		plan Plan
		want int
	}{
		{PlanSmall, 300},
		{PlanMedium, 700},
		{PlanLarge, 900},
	}
	for _, tt := range tests {
		if got := tt.plan.MaxStudents(); got != tt.want {
			t.Errorf("%s.MaxStudents() = %d, want %d", tt.plan, got, tt.want)
		}
	}
}

func TestTenantStatusTransitions(t *testing.T) {
	all := []TenantStatus{TenantTrial, TenantPending, TenantActive, TenantRejected, TenantSuspended}

	allowed := map[TenantStatus]map[TenantStatus]bool{
		TenantTrial:     {TenantActive: true, TenantPending: true, TenantSuspended: true},
		TenantPending:   {TenantActive: true, TenantRejected: true},
		TenantActive:    {TenantSuspended: true},
		TenantSuspended: {TenantActive: true},
		TenantRejected:  {},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestRejectedIsTerminal(t *testing.T) {
	for _, to := range []TenantStatus{TenantTrial, TenantPending, TenantActive, TenantSuspended} {
		if TenantRejected.CanTransitionTo(to) {
			t.Errorf("rejected must not transition to %s", to)
		}
	}
}

func TestTenantAllowsAccess(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		tenant Tenant
		want   bool
	}{
		{"active", Tenant{Status: TenantActive}, true},
		{"trial inside window", Tenant{Status: TenantTrial, TrialEnd: now.Add(time.Hour)}, true},
		{"trial expired", Tenant{Status: TenantTrial, TrialEnd: now.Add(-time.Hour)}, false},
		{"pending", Tenant{Status: TenantPending}, false},
		{"rejected", Tenant{Status: TenantRejected}, false},
		{"suspended", Tenant{Status: TenantSuspended}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tenant.AllowsAccess(now); got != tt.want {
				t.Errorf("AllowsAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlanValid(t *testing.T) {
	for _, plan := range []Plan{PlanSmall, PlanMedium, PlanLarge} {
		if !plan.Valid() {
			t.Errorf("%s should be valid", plan)
		}
	}
	if Plan("enterprise").Valid() {
		t.Error("unknown plan should be invalid")
	}
}
