package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cipher-calc/backend/internal/auth/domain"
	"github.com/cipher-calc/backend/internal/auth/service"
	"github.com/cipher-calc/backend/internal/common/clock"
	commoncrypto "github.com/cipher-calc/backend/internal/common/crypto"
)

// issueLedgeredToken mints a refresh token the way a login would and returns
// it alongside a matching ledger record.
func issueLedgeredToken(t *testing.T, issuer *service.TokenIssuer, mockClock *clock.MockClock, userID string) (string, domain.RefreshTokenRecord) {
	t.Helper()

	issued, err := issuer.IssueRefreshToken(domain.UserID(userID))
	if err != nil {
		t.Fatalf("failed to issue refresh token: %v", err)
	}

	hasher := &commoncrypto.SHA256TokenHasher{}
	return issued.Token, domain.RefreshTokenRecord{
		JTI:       issued.JTI,
		UserID:    userID,
		TokenHash: hasher.Hash(issued.Token),
		ExpiresAt: issued.ExpiresAt,
		CreatedAt: mockClock.Now(),
	}
}

func withUser(users *mockUserRepo, mockClock *clock.MockClock, userID, email string) {
	users.findByIDFunc = func(ctx context.Context, id domain.UserID) (domain.User, error) {
		return domain.User{
			ID:           id,
			Email:        email,
			PasswordHash: "hashed:longpassword",
			CreatedAt:    mockClock.Now(),
		}, nil
	}
}

func TestAuthService_Refresh_Success(t *testing.T) {
	svc, users, ledger, mockClock, issuer := setupAuthService(t)

	token, record := issueLedgeredToken(t, issuer, mockClock, "user-1")
	withUser(users, mockClock, "user-1", "alice@example.com")

	ledger.findByJTIFunc = func(ctx context.Context, jti string) (domain.RefreshTokenRecord, error) {
		if jti != record.JTI {
			t.Errorf("lookup used jti %q, expected %q", jti, record.JTI)
		}
		return record, nil
	}

	var revokedJTI string
	ledger.revokeFunc = func(ctx context.Context, jti string) (bool, error) {
		revokedJTI = jti
		return true, nil
	}

	var persisted domain.RefreshTokenRecord
	ledger.persistFunc = func(ctx context.Context, rec domain.RefreshTokenRecord) error {
		persisted = rec
		return nil
	}

	result, err := svc.Refresh(context.Background(), token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if revokedJTI != record.JTI {
		t.Errorf("expected old jti %q revoked, got %q", record.JTI, revokedJTI)
	}
	if persisted.JTI == record.JTI {
		t.Error("rotation must mint a fresh jti")
	}
	if result.Tokens.RefreshToken == token {
		t.Error("rotation must return a new refresh token")
	}
	if result.User.ID != "user-1" {
		t.Errorf("expected user-1, got %q", result.User.ID)
	}
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	svc, _, _, _, _ := setupAuthService(t)

	_, err := svc.Refresh(context.Background(), "not-a-jwt")
	if !errors.Is(err, service.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

// An access token is signed with the other secret and must never pass
// refresh verification.
func TestAuthService_Refresh_AccessTokenRejected(t *testing.T) {
	svc, _, _, mockClock, issuer := setupAuthService(t)

	accessToken, err := issuer.IssueAccessToken(domain.User{
		ID:        "user-1",
		Email:     "alice@example.com",
		CreatedAt: mockClock.Now(),
	})
	if err != nil {
		t.Fatalf("failed to issue access token: %v", err)
	}

	_, err = svc.Refresh(context.Background(), accessToken)
	if !errors.Is(err, service.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestAuthService_Refresh_UnknownJTI(t *testing.T) {
	svc, _, _, mockClock, issuer := setupAuthService(t)

	token, _ := issueLedgeredToken(t, issuer, mockClock, "user-1")

	// Default ledger mock reports no record.
	_, err := svc.Refresh(context.Background(), token)
	if !errors.Is(err, service.ErrRefreshTokenRevoked) {
		t.Fatalf("expected ErrRefreshTokenRevoked, got %v", err)
	}
}

func TestAuthService_Refresh_RevokedRecord(t *testing.T) {
	svc, _, ledger, mockClock, issuer := setupAuthService(t)

	token, record := issueLedgeredToken(t, issuer, mockClock, "user-1")
	record.Revoked = true

	ledger.findByJTIFunc = func(ctx context.Context, jti string) (domain.RefreshTokenRecord, error) {
		return record, nil
	}
	ledger.revokeFunc = func(ctx context.Context, jti string) (bool, error) {
		t.Error("revoke must not be attempted for an already revoked record")
		return false, nil
	}

	_, err := svc.Refresh(context.Background(), token)
	if !errors.Is(err, service.ErrRefreshTokenRevoked) {
		t.Fatalf("expected ErrRefreshTokenRevoked, got %v", err)
	}
}

func TestAuthService_Refresh_HashMismatch(t *testing.T) {
	svc, _, ledger, mockClock, issuer := setupAuthService(t)

	token, record := issueLedgeredToken(t, issuer, mockClock, "user-1")
	record.TokenHash = "something else entirely"

	ledger.findByJTIFunc = func(ctx context.Context, jti string) (domain.RefreshTokenRecord, error) {
		return record, nil
	}

	_, err := svc.Refresh(context.Background(), token)
	if !errors.Is(err, service.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestAuthService_Refresh_LedgerExpired(t *testing.T) {
	svc, _, ledger, mockClock, issuer := setupAuthService(t)

	token, record := issueLedgeredToken(t, issuer, mockClock, "user-1")
	// The ledger says expired even though the signature is still in date.
	record.ExpiresAt = mockClock.Now()

	ledger.findByJTIFunc = func(ctx context.Context, jti string) (domain.RefreshTokenRecord, error) {
		return record, nil
	}

	_, err := svc.Refresh(context.Background(), token)
	if !errors.Is(err, service.ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}
}

func TestAuthService_Refresh_SignatureExpired(t *testing.T) {
	svc, _, ledger, mockClock, issuer := setupAuthService(t)

	token, record := issueLedgeredToken(t, issuer, mockClock, "user-1")
	ledger.findByJTIFunc = func(ctx context.Context, jti string) (domain.RefreshTokenRecord, error) {
		return record, nil
	}

	mockClock.Advance(8 * 24 * time.Hour)

	_, err := svc.Refresh(context.Background(), token)
	if !errors.Is(err, service.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

// A redemption that loses the conditional revoke must fail even though
// every earlier check passed.
func TestAuthService_Refresh_LostRotationRace(t *testing.T) {
	svc, users, ledger, mockClock, issuer := setupAuthService(t)

	token, record := issueLedgeredToken(t, issuer, mockClock, "user-1")
	withUser(users, mockClock, "user-1", "alice@example.com")

	ledger.findByJTIFunc = func(ctx context.Context, jti string) (domain.RefreshTokenRecord, error) {
		return record, nil
	}
	ledger.revokeFunc = func(ctx context.Context, jti string) (bool, error) {
		return false, nil
	}
	ledger.persistFunc = func(ctx context.Context, rec domain.RefreshTokenRecord) error {
		t.Error("no new tokens may be issued after losing the rotation race")
		return nil
	}

	_, err := svc.Refresh(context.Background(), token)
	if !errors.Is(err, service.ErrRefreshTokenRevoked) {
		t.Fatalf("expected ErrRefreshTokenRevoked, got %v", err)
	}
}

func TestAuthService_Refresh_UserDeleted(t *testing.T) {
	svc, _, ledger, mockClock, issuer := setupAuthService(t)

	token, record := issueLedgeredToken(t, issuer, mockClock, "user-1")
	ledger.findByJTIFunc = func(ctx context.Context, jti string) (domain.RefreshTokenRecord, error) {
		return record, nil
	}

	// Default user mock reports not found.
	_, err := svc.Refresh(context.Background(), token)
	if !errors.Is(err, service.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
