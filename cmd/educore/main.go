package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/educore/educore/internal/config"
	educorehttp "github.com/educore/educore/internal/http"
	"github.com/educore/educore/internal/obs"
	"github.com/educore/educore/pkg/auth"
	"github.com/educore/educore/pkg/repository"
	"github.com/educore/educore/pkg/tenant"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	tenants := repository.NewTenantsRepository(db)
	users := repository.NewUsersRepository(db)
	mfaSecrets := repository.NewMFASecretsRepository(db)

	sessions := auth.NewSessionService(auth.SessionConfig{
		TokenTTL:  cfg.JWT.TokenTTL,
		JWTSecret: cfg.JWT.Secret,
		Issuer:    cfg.JWT.Issuer,
	}, users, tenants)

	var mfaService *auth.MFAService
	if cfg.MFA.EncryptionKey != nil {
		mfaService = auth.NewMFAService(auth.MFAConfig{
			Issuer:        cfg.JWT.Issuer,
			EncryptionKey: cfg.MFA.EncryptionKey,
		}, mfaSecrets, users, sessions)
	} else {
		logger.Warn("MFA_ENCRYPTION_KEY not set, MFA endpoints disabled")
	}

	lifecycle := tenant.NewService(tenants, users)
	quota := tenant.NewQuotaEnforcer(tenants, users)

	obs.Init()

	router := educorehttp.NewRouter(educorehttp.RouterConfig{
		Logger:           logger,
		Sessions:         sessions,
		Lifecycle:        lifecycle,
		Quota:            quota,
		MFA:              mfaService,
		AuthRateRequests: cfg.RateLimit.AuthRequests,
		AuthRateWindow:   cfg.RateLimit.AuthWindow,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
