package constants

import "time"

const (
	JWTSecretMinLength = 32

	PasswordHashCost = 12

	DefaultMaxRequestSize = 1 << 20

	DBQueryTimeout        = 5 * time.Second
	DBPoolMetricsInterval = 30 * time.Second

	ServerReadHeaderTimeout = 5 * time.Second
	ServerReadTimeout       = 10 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	CleanupInterval = time.Hour
)

type ContextKey string

const TraceIDKey ContextKey = "trace_id"
