package domain

import "time"

// RefreshTokenRecord is one ledger entry per issued refresh token, keyed by
// the token's jti claim. The raw token never touches the ledger; only its
// one-way hash is stored. Once Revoked flips to true it never flips back.
type RefreshTokenRecord struct {
	JTI       string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
