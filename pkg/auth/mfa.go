package auth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/educore/educore/pkg/domain"
)

const (
	totpDigits = otp.DigitsSix
	totpPeriod = 30
	totpSkew   = 1 // allow ±30 seconds clock drift
)

// MFASecretStore is the secret persistence the MFA service depends on.
type MFASecretStore interface {
	Upsert(ctx context.Context, secret *domain.MFASecret) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.MFASecret, error)
	MarkUsed(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// MFAUserStore is the user persistence the MFA service depends on.
type MFAUserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SetMFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}

// MFAConfig contains configuration for the MFA service.
type MFAConfig struct {
	Issuer        string
	EncryptionKey []byte // 32 bytes for AES-256
}

// MFASetup is returned once at setup time; the secret is never shown again.
type MFASetup struct {
	Secret     string
	OTPAuthURL string
}

// MFAService handles TOTP enrollment and challenge verification for
// privileged accounts.
type MFAService struct {
	config   MFAConfig
	secrets  MFASecretStore
	users    MFAUserStore
	sessions *SessionService
}

// NewMFAService creates a new MFA service.
func NewMFAService(config MFAConfig, secrets MFASecretStore, users MFAUserStore, sessions *SessionService) *MFAService {
	return &MFAService{
		config:   config,
		secrets:  secrets,
		users:    users,
		sessions: sessions,
	}
}

// Setup generates a TOTP secret for the user and stores it encrypted. MFA
// stays disabled until the user confirms a code via Enable.
func (s *MFAService) Setup(ctx context.Context, userID uuid.UUID) (*MFASetup, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, domain.ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.config.Issuer,
		AccountName: user.Email,
		Period:      totpPeriod,
		Digits:      totpDigits,
	})
	if err != nil {
		return nil, fmt.Errorf("generate TOTP key: %w", err)
	}

	encrypted, err := s.encryptSecret(key.Secret())
	if err != nil {
		return nil, err
	}

	if err := s.secrets.Upsert(ctx, &domain.MFASecret{
		ID:              uuid.New(),
		UserID:          userID,
		SecretEncrypted: encrypted,
		CreatedAt:       time.Now(),
	}); err != nil {
		return nil, err
	}

	return &MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

// Enable turns on MFA after the user proves possession of the secret.
func (s *MFAService) Enable(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.MFAEnabled {
		return domain.ErrMFAAlreadyEnabled
	}

	if err := s.verifyCode(ctx, userID, code); err != nil {
		return err
	}

	return s.users.SetMFAEnabled(ctx, userID, true)
}

// Disable turns off MFA and discards the secret.
func (s *MFAService) Disable(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFAEnabled {
		return domain.ErrMFANotEnabled
	}

	if err := s.users.SetMFAEnabled(ctx, userID, false); err != nil {
		return err
	}
	return s.secrets.Delete(ctx, userID)
}

// VerifyChallenge completes a login that was halted for MFA: it checks the
// challenge token and the TOTP code, then mints the session token.
func (s *MFAService) VerifyChallenge(ctx context.Context, challengeToken, code string) (*LoginResult, error) {
	userID, err := s.sessions.VerifyChallenge(challengeToken)
	if err != nil {
		return nil, err
	}

	if err := s.verifyCode(ctx, userID, code); err != nil {
		return nil, err
	}

	return s.sessions.IssueForUser(ctx, userID)
}

func (s *MFAService) verifyCode(ctx context.Context, userID uuid.UUID, code string) error {
	record, err := s.secrets.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	secret, err := s.decryptSecret(record.SecretEncrypted)
	if err != nil {
		return err
	}

	valid, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !valid {
		return domain.ErrInvalidMFACode
	}

	_ = s.secrets.MarkUsed(ctx, userID)
	return nil
}

// encryptSecret encrypts a TOTP secret with AES-256-GCM.
func (s *MFAService) encryptSecret(secret string) (string, error) {
	block, err := aes.NewCipher(s.config.EncryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(secret), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decryptSecret decrypts an AES-256-GCM encrypted TOTP secret.
func (s *MFAService) decryptSecret(encrypted string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(s.config.EncryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(data) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
