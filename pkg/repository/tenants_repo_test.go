package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/educore/educore/pkg/domain"
)

func newTenantsMock(t *testing.T) (*TenantsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTenantsRepository(db), mock
}

var tenantRowColumns = []string{
	"id", "name", "address", "contact_email", "contact_phone", "plan",
	"max_students", "status", "rejection_reason", "subscription_status",
	"billing_cycle", "trial_start", "trial_end", "subscription_start",
	"subscription_end", "created_at", "updated_at", "deleted_at",
}

func tenantRow(id uuid.UUID, status domain.TenantStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(tenantRowColumns).AddRow(
		id.String(), "Riverside High", "", "office@riverside.edu", "",
		"small", 300, string(status), nil, "trial",
		"monthly", now, now.Add(domain.TrialPeriod), nil,
		nil, now, now, nil,
	)
}

func newTestTenant() (*domain.Tenant, *domain.User) {
	now := time.Now()
	tenant := &domain.Tenant{
		ID:                 uuid.New(),
		Name:               "Riverside High",
		Plan:               domain.PlanSmall,
		MaxStudents:        300,
		Status:             domain.TenantPending,
		SubscriptionStatus: domain.SubscriptionTrial,
		BillingCycle:       domain.BillingMonthly,
		TrialStart:         now,
		TrialEnd:           now.Add(domain.TrialPeriod),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	admin := &domain.User{
		ID:           uuid.New(),
		TenantID:     &tenant.ID,
		Email:        "admin@riverside.edu",
		FullName:     "Ada Principal",
		PasswordHash: "$argon2id$...",
		Role:         domain.RoleSchoolAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return tenant, admin
}

func TestCreateWithAdmin(t *testing.T) {
	repo, mock := newTenantsMock(t)
	tenant, admin := newTestTenant()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tenants").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.CreateWithAdmin(context.Background(), tenant, admin); err != nil {
		t.Fatalf("CreateWithAdmin() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// A duplicate admin email must roll back the tenant insert so no partial
// registration survives.
func TestCreateWithAdminDuplicateEmailRollsBack(t *testing.T) {
	repo, mock := newTenantsMock(t)
	tenant, admin := newTestTenant()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tenants").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateWithAdmin(context.Background(), tenant, admin)
	if !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("error = %v, want ErrEmailExists", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetTenantByID(t *testing.T) {
	repo, mock := newTenantsMock(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT").
		WithArgs(id).
		WillReturnRows(tenantRow(id, domain.TenantActive))

	tenant, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if tenant.ID != id {
		t.Errorf("ID = %s, want %s", tenant.ID, id)
	}
	if tenant.Status != domain.TenantActive {
		t.Errorf("Status = %s, want active", tenant.Status)
	}
}

func TestGetTenantByIDNotFound(t *testing.T) {
	repo, mock := newTenantsMock(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), id); !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("error = %v, want ErrTenantNotFound", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	repo, mock := newTenantsMock(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE tenants").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), id, domain.TenantPending, domain.TenantActive, nil)
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
}

// When the conditional write matches no row, the repository re-reads to
// tell a vanished tenant apart from a concurrent status change.
func TestUpdateStatusLostRace(t *testing.T) {
	repo, mock := newTenantsMock(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE tenants").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("rejected"))

	err := repo.UpdateStatus(context.Background(), id, domain.TenantPending, domain.TenantActive, nil)
	if !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("error = %v, want ErrInvalidStateTransition", err)
	}
}

func TestUpdateStatusTenantGone(t *testing.T) {
	repo, mock := newTenantsMock(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE tenants").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	err := repo.UpdateStatus(context.Background(), id, domain.TenantPending, domain.TenantActive, nil)
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("error = %v, want ErrTenantNotFound", err)
	}
}

func TestListWithSearch(t *testing.T) {
	repo, mock := newTenantsMock(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("%river%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT").
		WithArgs("%river%", 10, 0).
		WillReturnRows(tenantRow(id, domain.TenantPending))

	tenants, total, err := repo.List(context.Background(), domain.TenantListParams{
		Page:   1,
		Limit:  10,
		Search: "river",
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	if len(tenants) != 1 || tenants[0].Name != "Riverside High" {
		t.Errorf("tenants = %+v", tenants)
	}
}
