// Package config loads runtime configuration from the environment.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret   []byte
	Issuer   string
	TokenTTL time.Duration
}

type MFAConfig struct {
	// EncryptionKey is the 32-byte AES key protecting stored TOTP secrets.
	// Empty disables MFA endpoints.
	EncryptionKey []byte
}

type RateLimitConfig struct {
	AuthRequests int
	AuthWindow   time.Duration
}

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	MFA       MFAConfig
	RateLimit RateLimitConfig
}

// Load reads configuration from environment variables, applying defaults
// for everything except the JWT secret.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "educore"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "educore"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Issuer:   getEnv("JWT_ISSUER", "educore"),
			TokenTTL: getEnvDuration("JWT_TOKEN_TTL", 15*time.Minute),
		},
		RateLimit: RateLimitConfig{
			AuthRequests: getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 10),
			AuthWindow:   getEnvDuration("RATE_LIMIT_AUTH_WINDOW", time.Minute),
		},
	}

	secret := os.Getenv("JWT_SECRET")
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be set and at least 32 characters")
	}
	cfg.JWT.Secret = []byte(secret)

	if keyHex := os.Getenv("MFA_ENCRYPTION_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("MFA_ENCRYPTION_KEY must be hex encoded: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("MFA_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
		}
		cfg.MFA.EncryptionKey = key
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
