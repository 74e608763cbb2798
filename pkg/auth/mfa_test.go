package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"github.com/educore/educore/pkg/domain"
)

// SetMFAEnabled completes the MFAUserStore interface for fakeUserStore.
func (s *fakeUserStore) SetMFAEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.MFAEnabled = enabled
	return nil
}

type fakeSecretStore struct {
	secrets map[uuid.UUID]*domain.MFASecret
	used    map[uuid.UUID]bool
}

func newFakeSecretStore() *fakeSecretStore {
	return &fakeSecretStore{
		secrets: make(map[uuid.UUID]*domain.MFASecret),
		used:    make(map[uuid.UUID]bool),
	}
}

func (s *fakeSecretStore) Upsert(_ context.Context, secret *domain.MFASecret) error {
	s.secrets[secret.UserID] = secret
	return nil
}

func (s *fakeSecretStore) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.MFASecret, error) {
	secret, ok := s.secrets[userID]
	if !ok {
		return nil, domain.ErrMFANotEnabled
	}
	return secret, nil
}

func (s *fakeSecretStore) MarkUsed(_ context.Context, userID uuid.UUID) error {
	s.used[userID] = true
	return nil
}

func (s *fakeSecretStore) Delete(_ context.Context, userID uuid.UUID) error {
	delete(s.secrets, userID)
	return nil
}

func newTestMFA(t *testing.T) (*MFAService, *SessionService, *fakeSecretStore, *domain.User) {
	t.Helper()
	tenant, user := testFixtures(t)
	users := newFakeUserStore(user)
	sessions := newTestService(users, newFakeTenantStore(tenant), time.Minute)

	secrets := newFakeSecretStore()
	svc := NewMFAService(MFAConfig{
		Issuer:        "educore-test",
		EncryptionKey: []byte("0123456789abcdef0123456789abcdef"),
	}, secrets, users, sessions)

	return svc, sessions, secrets, user
}

func TestMFASetupAndEnable(t *testing.T) {
	svc, _, secrets, user := newTestMFA(t)
	ctx := context.Background()

	setup, err := svc.Setup(ctx, user.ID)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if setup.Secret == "" || setup.OTPAuthURL == "" {
		t.Fatal("setup should return the secret and the otpauth URL")
	}

	stored := secrets.secrets[user.ID]
	if stored == nil {
		t.Fatal("secret was not persisted")
	}
	if stored.SecretEncrypted == setup.Secret {
		t.Error("persisted secret must be encrypted")
	}

	if err := svc.Enable(ctx, user.ID, "000000"); !errors.Is(err, domain.ErrInvalidMFACode) {
		t.Fatalf("wrong code: error = %v, want ErrInvalidMFACode", err)
	}
	if user.MFAEnabled {
		t.Fatal("MFA must stay off after a failed confirmation")
	}

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Enable(ctx, user.ID, code); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if !user.MFAEnabled {
		t.Error("MFA should be enabled after confirmation")
	}

	if _, err := svc.Setup(ctx, user.ID); !errors.Is(err, domain.ErrMFAAlreadyEnabled) {
		t.Errorf("second setup: error = %v, want ErrMFAAlreadyEnabled", err)
	}
}

func TestMFAChallengeFlow(t *testing.T) {
	svc, sessions, _, user := newTestMFA(t)
	ctx := context.Background()

	setup, err := svc.Setup(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Enable(ctx, user.ID, code); err != nil {
		t.Fatal(err)
	}

	login, err := sessions.Login(ctx, user.Email, testPassword)
	if err != nil {
		t.Fatal(err)
	}
	if !login.MFARequired {
		t.Fatal("login should require MFA")
	}

	if _, err := svc.VerifyChallenge(ctx, login.ChallengeToken, "999999"); !errors.Is(err, domain.ErrInvalidMFACode) {
		t.Fatalf("wrong code: error = %v, want ErrInvalidMFACode", err)
	}

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	result, err := svc.VerifyChallenge(ctx, login.ChallengeToken, code)
	if err != nil {
		t.Fatalf("VerifyChallenge() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("challenge completion should mint a session token")
	}

	identity, err := sessions.Validate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if identity.UserID != user.ID {
		t.Errorf("UserID = %s, want %s", identity.UserID, user.ID)
	}
}

func TestMFADisable(t *testing.T) {
	svc, _, secrets, user := newTestMFA(t)
	ctx := context.Background()

	if err := svc.Disable(ctx, user.ID); !errors.Is(err, domain.ErrMFANotEnabled) {
		t.Fatalf("disable without MFA: error = %v, want ErrMFANotEnabled", err)
	}

	setup, err := svc.Setup(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Enable(ctx, user.ID, code); err != nil {
		t.Fatal(err)
	}

	if err := svc.Disable(ctx, user.ID); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if user.MFAEnabled {
		t.Error("MFA should be off after disable")
	}
	if _, ok := secrets.secrets[user.ID]; ok {
		t.Error("secret should be discarded on disable")
	}
}
