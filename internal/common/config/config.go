package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cipher-calc/backend/internal/common/constants"
	commonerrors "github.com/cipher-calc/backend/internal/common/errors"
)

// AuthConfig is built once at startup and passed by reference into the
// token issuer and auth service; nothing reads the environment after this.
type AuthConfig struct {
	HTTPPort        string
	DatabaseURL     string
	AccessSecret    string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RequestTimeout  time.Duration
}

type VaultConfig struct {
	HTTPPort             string
	DatabaseURL          string
	AccessSecret         string
	RequestTimeout       time.Duration
	WebSocketWriteWait   time.Duration
	WebSocketPongWait    time.Duration
	WebSocketPingPeriod  time.Duration
	WebSocketSendBufSize int
}

func LoadAuthConfig() (AuthConfig, error) {
	accessSecret, err := mustEnv("JWT_ACCESS_SECRET")
	if err != nil {
		return AuthConfig{}, err
	}
	if err := validateJWTSecret(accessSecret); err != nil {
		return AuthConfig{}, err
	}

	refreshSecret, err := mustEnv("JWT_REFRESH_SECRET")
	if err != nil {
		return AuthConfig{}, err
	}
	if err := validateJWTSecret(refreshSecret); err != nil {
		return AuthConfig{}, err
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return AuthConfig{}, err
	}

	return AuthConfig{
		HTTPPort:        getEnv("AUTH_HTTP_PORT", "8081"),
		DatabaseURL:     databaseURL,
		AccessSecret:    accessSecret,
		RefreshSecret:   refreshSecret,
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RequestTimeout:  getDurationEnv("AUTH_REQUEST_TIMEOUT", 5*time.Second),
	}, nil
}

func LoadVaultConfig() (VaultConfig, error) {
	accessSecret, err := mustEnv("JWT_ACCESS_SECRET")
	if err != nil {
		return VaultConfig{}, err
	}
	if err := validateJWTSecret(accessSecret); err != nil {
		return VaultConfig{}, err
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return VaultConfig{}, err
	}

	return VaultConfig{
		HTTPPort:             getEnv("VAULT_HTTP_PORT", "8082"),
		DatabaseURL:          databaseURL,
		AccessSecret:         accessSecret,
		RequestTimeout:       getDurationEnv("VAULT_REQUEST_TIMEOUT", 5*time.Second),
		WebSocketWriteWait:   getDurationEnv("VAULT_WS_WRITE_WAIT", 10*time.Second),
		WebSocketPongWait:    getDurationEnv("VAULT_WS_PONG_WAIT", 60*time.Second),
		WebSocketPingPeriod:  getDurationEnv("VAULT_WS_PING_PERIOD", 54*time.Second),
		WebSocketSendBufSize: getIntEnv("VAULT_WS_SEND_BUF_SIZE", 64),
	}, nil
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return commonerrors.ErrInvalidJWTSecret.WithCause(
			fmt.Errorf("got %d bytes", len(secret)),
		)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("%s", key))
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
