package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/educore/educore/pkg/domain"
)

const (
	// DefaultTokenTTL bounds the lifetime of a session token. There is no
	// server-side revocation list, so expiry is the only hard bound on a
	// leaked token; keep this short.
	DefaultTokenTTL = 15 * time.Minute

	challengeTokenTTL = 5 * time.Minute

	tokenUseSession      = "session"
	tokenUseMFAChallenge = "mfa_challenge"
)

// UserStore is the user persistence the session service depends on.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

// TenantStore is the tenant persistence the session service depends on.
type TenantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

// SessionConfig holds token signing configuration.
type SessionConfig struct {
	TokenTTL  time.Duration
	JWTSecret []byte
	Issuer    string
}

// Claims are the session token claims. Tokens are stateless: everything a
// request needs to bind the caller to a user, role, and tenant travels in
// the token itself.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role,omitempty"`
	TokenUse string `json:"use"`
}

// Identity is a validated caller: user, role, and tenant scope. TenantID is
// uuid.Nil for sys_admin sessions.
type Identity struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     domain.Role
}

// IsSysAdmin returns true for global, tenant-less sessions.
func (id *Identity) IsSysAdmin() bool {
	return id.Role == domain.RoleSysAdmin
}

// CanAccessTenant reports whether the identity may operate on the given
// tenant. sys_admin bypasses tenant scoping; everyone else is confined to
// their own tenant.
func (id *Identity) CanAccessTenant(tenantID uuid.UUID) bool {
	if id.IsSysAdmin() {
		return true
	}
	return id.TenantID == tenantID
}

// LoginResult is the outcome of a successful credential check. When the
// account has MFA enabled no session token is minted; the caller must
// complete the challenge first.
type LoginResult struct {
	Token          string
	ExpiresAt      time.Time
	MFARequired    bool
	ChallengeToken string
	User           *domain.User
	Tenant         *domain.Tenant
}

// SessionService issues and validates session tokens.
type SessionService struct {
	config  SessionConfig
	users   UserStore
	tenants TenantStore
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig, users UserStore, tenants TenantStore) *SessionService {
	if config.TokenTTL == 0 {
		config.TokenTTL = DefaultTokenTTL
	}
	return &SessionService{
		config:  config,
		users:   users,
		tenants: tenants,
	}
}

// TokenTTL returns the configured session token lifetime.
func (s *SessionService) TokenTTL() time.Duration {
	return s.config.TokenTTL
}

// Login verifies credentials and mints a session token. Unknown email and
// wrong password produce the same error so callers cannot enumerate users.
func (s *SessionService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.Active {
		return nil, domain.ErrUserInactive
	}

	if user.MFAEnabled {
		challenge, err := s.IssueChallenge(user.ID)
		if err != nil {
			return nil, err
		}
		return &LoginResult{MFARequired: true, ChallengeToken: challenge, User: user}, nil
	}

	return s.completeLogin(ctx, user)
}

// IssueForUser mints a session token for an already-authenticated user.
// Used after a successful MFA challenge.
func (s *SessionService) IssueForUser(ctx context.Context, userID uuid.UUID) (*LoginResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserInactive
		}
		return nil, err
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}
	return s.completeLogin(ctx, user)
}

func (s *SessionService) completeLogin(ctx context.Context, user *domain.User) (*LoginResult, error) {
	var tenant *domain.Tenant
	if user.IsTenantScoped() {
		if user.TenantID == nil {
			return nil, domain.ErrTenantInactive
		}
		var err error
		tenant, err = s.tenants.GetByID(ctx, *user.TenantID)
		if err != nil {
			if errors.Is(err, domain.ErrTenantNotFound) {
				return nil, domain.ErrTenantInactive
			}
			return nil, err
		}
		if !tenant.AllowsAccess(time.Now()) {
			return nil, domain.ErrTenantInactive
		}
	}

	token, expiresAt, err := s.mintToken(user)
	if err != nil {
		return nil, err
	}

	_ = s.users.UpdateLastLogin(ctx, user.ID)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		Tenant:    tenant,
	}, nil
}

func (s *SessionService) mintToken(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.TokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    s.config.Issuer,
		},
		Role:     string(user.Role),
		TokenUse: tokenUseSession,
	}
	if user.TenantID != nil {
		claims.TenantID = user.TenantID.String()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.JWTSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate verifies a session token and binds the caller to a user, role,
// and tenant. Tenant and user state are re-read on every call so a
// suspension or deactivation takes effect on the next request, not at token
// expiry. A store failure rejects the token: validation fails closed.
func (s *SessionService) Validate(ctx context.Context, tokenString string) (*Identity, error) {
	claims, err := s.parseClaims(tokenString, tokenUseSession)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.ErrMalformedToken
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return nil, domain.ErrMalformedToken
	}

	tenantID := uuid.Nil
	if role != domain.RoleSysAdmin {
		tenantID, err = uuid.Parse(claims.TenantID)
		if err != nil {
			return nil, domain.ErrMalformedToken
		}
		tenant, err := s.tenants.GetByID(ctx, tenantID)
		if err != nil {
			if errors.Is(err, domain.ErrTenantNotFound) {
				return nil, domain.ErrTenantInactive
			}
			return nil, err
		}
		if !tenant.AllowsAccess(time.Now()) {
			return nil, domain.ErrTenantInactive
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserInactive
		}
		return nil, err
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}

	return &Identity{UserID: userID, TenantID: tenantID, Role: role}, nil
}

// CurrentUser loads the user and tenant behind a validated identity, for
// identity echo endpoints.
func (s *SessionService) CurrentUser(ctx context.Context, identity *Identity) (*domain.User, *domain.Tenant, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, nil, err
	}

	var tenant *domain.Tenant
	if identity.TenantID != uuid.Nil {
		tenant, err = s.tenants.GetByID(ctx, identity.TenantID)
		if err != nil {
			return nil, nil, err
		}
	}

	return user, tenant, nil
}

// IssueChallenge mints a short-lived MFA challenge token. A challenge token
// is never accepted as a session token.
func (s *SessionService) IssueChallenge(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(challengeTokenTTL)),
			Issuer:    s.config.Issuer,
		},
		TokenUse: tokenUseMFAChallenge,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.JWTSecret)
}

// VerifyChallenge checks an MFA challenge token and returns the user it was
// issued for.
func (s *SessionService) VerifyChallenge(tokenString string) (uuid.UUID, error) {
	claims, err := s.parseClaims(tokenString, tokenUseMFAChallenge)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, domain.ErrMalformedToken
	}
	return userID, nil
}

func (s *SessionService) parseClaims(tokenString, expectedUse string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrMalformedToken
		}
		return s.config.JWTSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrMalformedToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenUse != expectedUse {
		return nil, domain.ErrMalformedToken
	}
	return claims, nil
}
