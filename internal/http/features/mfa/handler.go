// Package mfa exposes TOTP enrollment and challenge verification for
// administrator accounts.
package mfa

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
	logger *slog.Logger
	mfa    *auth.MFAService
}

func NewHandler(logger *slog.Logger, mfa *auth.MFAService) *Handler {
	return &Handler{logger: logger, mfa: mfa}
}

// Setup generates a TOTP secret for the authenticated administrator. The
// secret is returned once; the account stays MFA-off until Enable confirms
// the authenticator works.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	identity := middleware.Identity(r.Context())

	setup, err := h.mfa.Setup(r.Context(), identity.UserID)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, "scan the code with your authenticator, then confirm", map[string]string{
		"secret":     setup.Secret,
		"otpauthUrl": setup.OTPAuthURL,
	})
}

type codeRequest struct {
	Code string `json:"code"`
}

// Enable turns on MFA after the administrator proves they can produce a
// valid code.
func (h *Handler) Enable(w http.ResponseWriter, r *http.Request) {
	identity := middleware.Identity(r.Context())

	var req codeRequest
	if err := httputil.Decode(r, &req); err != nil || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "verification code is required")
		return
	}

	if err := h.mfa.Enable(r.Context(), identity.UserID, req.Code); err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info("mfa enabled", "user_id", identity.UserID)
	httputil.JSON(w, http.StatusOK, "two-factor authentication enabled", nil)
}

// Disable turns off MFA for the authenticated administrator.
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	identity := middleware.Identity(r.Context())

	if err := h.mfa.Disable(r.Context(), identity.UserID); err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info("mfa disabled", "user_id", identity.UserID)
	httputil.JSON(w, http.StatusOK, "two-factor authentication disabled", nil)
}

type verifyRequest struct {
	ChallengeToken string `json:"challengeToken"`
	Code           string `json:"code"`
}

// Verify completes an MFA login challenge and returns the session token.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httputil.Decode(r, &req); err != nil || req.ChallengeToken == "" || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "challenge token and code are required")
		return
	}

	result, err := h.mfa.VerifyChallenge(r.Context(), req.ChallengeToken, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidMFACode) {
			obs.AuthFailure("bad_mfa_code")
		}
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info("mfa challenge passed", "user_id", result.User.ID)
	httputil.JSON(w, http.StatusOK, "login successful", map[string]any{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.Format(time.RFC3339),
		"user": map[string]string{
			"id":    result.User.ID.String(),
			"email": result.User.Email,
			"role":  string(result.User.Role),
		},
	})
}
