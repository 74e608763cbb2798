// Package session exposes login, logout, and the current-user endpoint.
package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/educore/educore/internal/httputil"
	"github.com/educore/educore/internal/http/middleware"
	"github.com/educore/educore/internal/obs"
	"github.com/educore/educore/pkg/auth"
	"github.com/educore/educore/pkg/domain"
)

type Handler struct {
	logger   *slog.Logger
	sessions *auth.SessionService
}

func NewHandler(logger *slog.Logger, sessions *auth.SessionService) *Handler {
	return &Handler{logger: logger, sessions: sessions}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionUser struct {
	ID       string  `json:"id"`
	TenantID *string `json:"tenantId,omitempty"`
	Email    string  `json:"email"`
	FullName string  `json:"fullName"`
	Role     string  `json:"role"`
}

func toSessionUser(u *domain.User) sessionUser {
	su := sessionUser{
		ID:       u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
	}
	if u.TenantID != nil {
		id := u.TenantID.String()
		su.TenantID = &id
	}
	return su
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      sessionUser `json:"user"`
}

type challengeResponse struct {
	MFARequired    bool   `json:"mfaRequired"`
	ChallengeToken string `json:"challengeToken"`
}

// Login verifies credentials and returns a session token, or an MFA
// challenge when the account requires a second factor.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			obs.AuthFailure("bad_credentials")
		}
		httputil.DomainError(w, err)
		return
	}

	if result.MFARequired {
		httputil.JSON(w, http.StatusOK, "verification code required", challengeResponse{
			MFARequired:    true,
			ChallengeToken: result.ChallengeToken,
		})
		return
	}

	h.logger.Info("login", "user_id", result.User.ID, "role", result.User.Role)
	httputil.JSON(w, http.StatusOK, "login successful", loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toSessionUser(result.User),
	})
}

// Logout acknowledges the client discarding its token. Tokens are
// stateless, so nothing is revoked server side; they lapse at expiry.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, "logged out", nil)
}

// Me returns the authenticated user and, for tenant-scoped accounts, the
// current tenant state.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.Identity(r.Context())

	user, tenant, err := h.sessions.CurrentUser(r.Context(), identity)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	data := map[string]any{"user": toSessionUser(user)}
	if tenant != nil {
		data["tenant"] = map[string]any{
			"id":     tenant.ID.String(),
			"name":   tenant.Name,
			"plan":   string(tenant.Plan),
			"status": string(tenant.Status),
		}
	}
	httputil.JSON(w, http.StatusOK, "", data)
}
