// Package http wires the feature handlers into the chi router.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/educore/educore/internal/http/features/mfa"
	"github.com/educore/educore/internal/http/features/session"
	"github.com/educore/educore/internal/http/features/tenant"
	"github.com/educore/educore/internal/http/middleware"
	"github.com/educore/educore/internal/httputil"
	"github.com/educore/educore/internal/obs"
	"github.com/educore/educore/pkg/auth"
	"github.com/educore/educore/pkg/domain"
	tenantsvc "github.com/educore/educore/pkg/tenant"
)

// RouterConfig carries everything the router needs. MFA may be nil, in
// which case the MFA endpoints are not mounted.
type RouterConfig struct {
	Logger    *slog.Logger
	Sessions  *auth.SessionService
	Lifecycle *tenantsvc.Service
	Quota     *tenantsvc.QuotaEnforcer
	MFA       *auth.MFAService

	AuthRateRequests int
	AuthRateWindow   time.Duration
}

// NewRouter builds the full HTTP surface.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(obs.Instrument)

	authenticate := middleware.Authenticate(cfg.Sessions)
	adminOnly := middleware.RequireRole(domain.RoleSchoolAdmin, domain.RoleSysAdmin)
	sysAdminOnly := middleware.RequireRole(domain.RoleSysAdmin)

	authRate := middleware.AuthRateLimit(cfg.AuthRateRequests, cfg.AuthRateWindow)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.JSON(w, http.StatusOK, "ok", nil)
	})
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	sessionHandler := session.NewHandler(cfg.Logger, cfg.Sessions)
	tenantHandler := tenant.NewHandler(cfg.Logger, cfg.Lifecycle, cfg.Quota)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(authRate).Post("/login", sessionHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/logout", sessionHandler.Logout)
			r.Get("/me", sessionHandler.Me)
		})

		if cfg.MFA != nil {
			mfaHandler := mfa.NewHandler(cfg.Logger, cfg.MFA)
			r.Route("/mfa", func(r chi.Router) {
				r.With(authRate).Post("/verify", mfaHandler.Verify)

				r.Group(func(r chi.Router) {
					r.Use(authenticate, adminOnly)
					r.Post("/setup", mfaHandler.Setup)
					r.Post("/enable", mfaHandler.Enable)
					r.Post("/disable", mfaHandler.Disable)
				})
			})
		}
	})

	staffOnly := middleware.RequireRole(domain.RoleTeacher, domain.RoleSchoolAdmin, domain.RoleSysAdmin)

	r.Route("/api/tenants", func(r chi.Router) {
		r.With(authRate).Post("/register", tenantHandler.Register)

		r.With(authenticate, sysAdminOnly).Get("/", tenantHandler.List)

		r.Route("/{tenantID}", func(r chi.Router) {
			r.Use(authenticate)

			// any member of the tenant may read its profile
			r.Get("/", tenantHandler.Get)
			r.With(staffOnly).Get("/check-limit", tenantHandler.CheckLimit)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/stats", tenantHandler.Stats)
				r.Post("/users", tenantHandler.CreateUser)
			})

			r.Group(func(r chi.Router) {
				r.Use(sysAdminOnly)
				r.Put("/approve", tenantHandler.Approve)
				r.Put("/reject", tenantHandler.Reject)
				r.Put("/suspend", tenantHandler.Suspend)
				r.Put("/reactivate", tenantHandler.Reactivate)
				r.Put("/subscription", tenantHandler.UpdateSubscription)
			})
		})
	})

	return r
}
