package http

import (
	"net/http"

	"github.com/cipher-calc/backend/internal/common/constants"
	"github.com/cipher-calc/backend/internal/common/httpmetrics"
	"github.com/cipher-calc/backend/internal/common/logger"
)

// BuildBaseHandler wires the shared middleware chain around a service mux.
// Order matters: security headers first, recovery outside everything that can
// panic, trace id before anything that logs.
func BuildBaseHandler(appName string, log *logger.Logger, handler http.Handler) http.Handler {
	metrics := httpmetrics.New(appName)
	recovery := RecoveryMiddleware(log)
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)

	return SecurityHeadersMiddleware(recovery(TraceIDMiddleware(maxRequestSize(metrics.Wrap(handler)))))
}
