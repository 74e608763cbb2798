package config

import (
	"testing"
	"time"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is unset")
	}

	t.Setenv("JWT_SECRET", "too-short")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is shorter than 32 characters")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.JWT.TokenTTL != 15*time.Minute {
		t.Errorf("JWT.TokenTTL = %v, want 15m", cfg.JWT.TokenTTL)
	}
	if cfg.DB.SSLMode != "disable" {
		t.Errorf("DB.SSLMode = %q, want disable", cfg.DB.SSLMode)
	}
	if cfg.MFA.EncryptionKey != nil {
		t.Errorf("MFA.EncryptionKey should be nil when unset")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_TOKEN_TTL", "5m")
	t.Setenv("MFA_ENCRYPTION_KEY", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.JWT.TokenTTL != 5*time.Minute {
		t.Errorf("JWT.TokenTTL = %v, want 5m", cfg.JWT.TokenTTL)
	}
	if len(cfg.MFA.EncryptionKey) != 32 {
		t.Errorf("MFA.EncryptionKey length = %d, want 32", len(cfg.MFA.EncryptionKey))
	}
}

func TestLoadRejectsBadMFAKey(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	t.Setenv("MFA_ENCRYPTION_KEY", "not-hex")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-hex MFA key")
	}

	t.Setenv("MFA_ENCRYPTION_KEY", "00010203")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for short MFA key")
	}
}
