package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cipher-calc/backend/internal/auth/domain"
	"github.com/cipher-calc/backend/internal/common/clock"
	commoncrypto "github.com/cipher-calc/backend/internal/common/crypto"
)

// TokenIssuer mints both token classes. Access and refresh tokens are signed
// with distinct secrets so a leaked access token can never pass refresh
// verification.
type TokenIssuer struct {
	accessSecret    []byte
	refreshSecret   []byte
	idGenerator     commoncrypto.IDGenerator
	clock           clock.Clock
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// IssuedRefreshToken carries everything the ledger needs to record an
// issuance alongside the raw token handed to the caller.
type IssuedRefreshToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// RefreshClaims are the claims the rotation state machine requires from a
// presented refresh token.
type RefreshClaims struct {
	Subject string
	JTI     string
}

func NewTokenIssuer(
	accessSecret string,
	refreshSecret string,
	idGenerator commoncrypto.IDGenerator,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
	clk clock.Clock,
) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:    []byte(accessSecret),
		refreshSecret:   []byte(refreshSecret),
		idGenerator:     idGenerator,
		clock:           clk,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

func (ti *TokenIssuer) IssueAccessToken(user domain.User) (string, error) {
	now := ti.clock.Now()
	claims := jwt.MapClaims{
		"sub":   string(user.ID),
		"email": user.Email,
		"exp":   now.Add(ti.accessTokenTTL).Unix(),
		"iat":   now.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := t.SignedString(ti.accessSecret)
	if err != nil {
		return "", err
	}

	incrementAccessTokensIssued()
	return tokenString, nil
}

// IssueRefreshToken signs a refresh token with a fresh jti and reports the
// expiry decoded back out of the signed token itself, so ledger expiry can
// never drift from what verification enforces.
func (ti *TokenIssuer) IssueRefreshToken(userID domain.UserID) (IssuedRefreshToken, error) {
	jti, err := ti.idGenerator.NewID()
	if err != nil {
		return IssuedRefreshToken{}, err
	}

	now := ti.clock.Now()
	claims := jwt.MapClaims{
		"sub": string(userID),
		"jti": jti,
		"exp": now.Add(ti.refreshTokenTTL).Unix(),
		"iat": now.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := t.SignedString(ti.refreshSecret)
	if err != nil {
		return IssuedRefreshToken{}, err
	}

	expiresAt, err := decodeExpiry(tokenString)
	if err != nil {
		return IssuedRefreshToken{}, err
	}

	incrementRefreshTokensIssued()
	return IssuedRefreshToken{
		Token:     tokenString,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyRefreshToken checks signature and expiry against the refresh secret
// and extracts the claims the rotation flow depends on. Verification
// failures of any kind surface as ErrInvalidRefreshToken; a verified token
// missing sub or jti surfaces as ErrInvalidRefreshPayload.
func (ti *TokenIssuer) VerifyRefreshToken(tokenString string) (RefreshClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return ti.refreshSecret, nil
	}, jwt.WithTimeFunc(ti.clock.Now))
	if err != nil || !parsed.Valid {
		return RefreshClaims{}, ErrInvalidRefreshToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return RefreshClaims{}, ErrInvalidRefreshPayload
	}

	sub, _ := mapClaims["sub"].(string)
	jti, _ := mapClaims["jti"].(string)
	if sub == "" || jti == "" {
		return RefreshClaims{}, ErrInvalidRefreshPayload
	}

	return RefreshClaims{Subject: sub, JTI: jti}, nil
}

func decodeExpiry(tokenString string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("token has no expiry claim")
	}
	return exp.Time, nil
}
