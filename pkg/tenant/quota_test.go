package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/educore/educore/pkg/domain"
)

// smallTenant seeds an approved tenant with the given seat limit.
func smallTenant(t *testing.T, tenants *memTenantStore, svc *Service, maxStudents int) uuid.UUID {
	t.Helper()
	id := registerTenant(t, svc)
	if _, err := svc.Approve(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	tenants.tenants[id].MaxStudents = maxStudents
	return id
}

func studentParams(n int) NewUserParams {
	return NewUserParams{
		Email:    fmt.Sprintf("student%d@riverside.edu", n),
		Password: "s3cret-passw0rd",
		FullName: fmt.Sprintf("Student %d", n),
		Role:     domain.RoleStudent,
	}
}

func TestCanAddStudentsBoundary(t *testing.T) {
	tenants, users := newMemStores()
	svc := NewService(tenants, users)
	quota := NewQuotaEnforcer(tenants, users)
	id := smallTenant(t, tenants, svc, 2)

	if _, err := quota.AdmitUser(context.Background(), id, studentParams(1)); err != nil {
		t.Fatal(err)
	}

	check, err := quota.CanAddStudents(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("CanAddStudents() error = %v", err)
	}
	if !check.CanAdd {
		t.Error("one seat left, adding one should be allowed")
	}
	if check.CurrentCount != 1 || check.MaxAllowed != 2 || check.NewTotal != 2 || check.Remaining != 1 {
		t.Errorf("check = %+v", check)
	}

	check, err = quota.CanAddStudents(context.Background(), id, 2)
	if err != nil {
		t.Fatal(err)
	}
	if check.CanAdd {
		t.Error("adding two into one remaining seat must be denied")
	}
	if check.NewTotal != 3 || check.Remaining != 1 {
		t.Errorf("check = %+v", check)
	}
}

func TestCanAddStudentsRejectsNonPositiveCount(t *testing.T) {
	tenants, users := newMemStores()
	svc := NewService(tenants, users)
	quota := NewQuotaEnforcer(tenants, users)
	id := smallTenant(t, tenants, svc, 2)

	_, err := quota.CanAddStudents(context.Background(), id, 0)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want *ValidationError", err)
	}
}

func TestAdmitUserQuota(t *testing.T) {
	tenants, users := newMemStores()
	svc := NewService(tenants, users)
	quota := NewQuotaEnforcer(tenants, users)
	id := smallTenant(t, tenants, svc, 2)

	for i := 1; i <= 2; i++ {
		if _, err := quota.AdmitUser(context.Background(), id, studentParams(i)); err != nil {
			t.Fatalf("student %d: %v", i, err)
		}
	}

	_, err := quota.AdmitUser(context.Background(), id, studentParams(3))
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Errorf("error = %v, want ErrQuotaExceeded", err)
	}

	// teachers are not limited by the student quota
	_, err = quota.AdmitUser(context.Background(), id, NewUserParams{
		Email:    "teacher@riverside.edu",
		Password: "s3cret-passw0rd",
		FullName: "Grace Teacher",
		Role:     domain.RoleTeacher,
	})
	if err != nil {
		t.Errorf("teacher admission over the student limit: %v", err)
	}
}

func TestAdmitUserInactiveTenant(t *testing.T) {
	tenants, users := newMemStores()
	svc := NewService(tenants, users)
	quota := NewQuotaEnforcer(tenants, users)
	id := registerTenant(t, svc) // still pending

	_, err := quota.AdmitUser(context.Background(), id, studentParams(1))
	if !errors.Is(err, domain.ErrTenantInactive) {
		t.Errorf("error = %v, want ErrTenantInactive", err)
	}
}

func TestAdmitUserRejectsSysAdminRole(t *testing.T) {
	tenants, users := newMemStores()
	svc := NewService(tenants, users)
	quota := NewQuotaEnforcer(tenants, users)
	id := smallTenant(t, tenants, svc, 2)

	params := studentParams(1)
	params.Role = domain.RoleSysAdmin
	_, err := quota.AdmitUser(context.Background(), id, params)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want *ValidationError", err)
	}
}

// Concurrent admissions must never overshoot the seat limit: the
// count-and-insert is serialized per tenant. The store is driven directly
// so the goroutines contend on the quota, not on password hashing.
func TestConcurrentStudentAdmissions(t *testing.T) {
	tenants, users := newMemStores()
	svc := NewService(tenants, users)

	const maxSeats = 10
	const attempts = 50
	id := smallTenant(t, tenants, svc, maxSeats)

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- users.CreateStudentWithinQuota(context.Background(), &domain.User{
				ID:       uuid.New(),
				TenantID: &id,
				Email:    fmt.Sprintf("student%d@riverside.edu", n),
				FullName: fmt.Sprintf("Student %d", n),
				Role:     domain.RoleStudent,
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	admitted, denied := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, domain.ErrQuotaExceeded):
			denied++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if admitted != maxSeats {
		t.Errorf("admitted = %d, want %d", admitted, maxSeats)
	}
	if denied != attempts-maxSeats {
		t.Errorf("denied = %d, want %d", denied, attempts-maxSeats)
	}

	final, err := users.CountStudents(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if final != maxSeats {
		t.Errorf("final student count = %d, want %d", final, maxSeats)
	}
}
