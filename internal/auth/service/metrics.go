package service

import (
	"github.com/cipher-calc/backend/internal/observability/metrics"
)

func incrementAccessTokensIssued() {
	metrics.AccessTokensIssued.Inc()
}

func incrementRefreshTokensIssued() {
	metrics.RefreshTokensIssued.Inc()
}

func incrementRefreshTokensRotated() {
	metrics.RefreshTokensRotated.Inc()
}

func incrementRefreshTokensRevoked(n int64) {
	metrics.RefreshTokensRevoked.Add(float64(n))
}

func incrementRefreshTokensExpired() {
	metrics.RefreshTokensExpired.Inc()
}

func incrementRefreshTokensReplayed() {
	metrics.RefreshTokensReplayed.Inc()
}
