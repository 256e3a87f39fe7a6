package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cipher-calc/backend/internal/auth/domain"
	authrepo "github.com/cipher-calc/backend/internal/auth/repository"
	"github.com/cipher-calc/backend/internal/auth/service"
	"github.com/cipher-calc/backend/internal/common/clock"
	commoncrypto "github.com/cipher-calc/backend/internal/common/crypto"
	"github.com/cipher-calc/backend/internal/common/logger"
)

const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

type mockUserRepo struct {
	createFunc           func(ctx context.Context, user domain.User) error
	findByEmailFunc      func(ctx context.Context, email string) (domain.User, error)
	findByIDFunc         func(ctx context.Context, id domain.UserID) (domain.User, error)
	findBySecretCodeFunc func(ctx context.Context, code string) (domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user domain.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return domain.User{}, authrepo.ErrUserNotFound
}

func (m *mockUserRepo) FindByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return domain.User{}, authrepo.ErrUserNotFound
}

func (m *mockUserRepo) FindBySecretCode(ctx context.Context, code string) (domain.User, error) {
	if m.findBySecretCodeFunc != nil {
		return m.findBySecretCodeFunc(ctx, code)
	}
	return domain.User{}, authrepo.ErrUserNotFound
}

type mockLedger struct {
	persistFunc          func(ctx context.Context, record domain.RefreshTokenRecord) error
	findByJTIFunc        func(ctx context.Context, jti string) (domain.RefreshTokenRecord, error)
	revokeFunc           func(ctx context.Context, jti string) (bool, error)
	revokeAllForUserFunc func(ctx context.Context, userID string) (int64, error)
	deleteExpiredFunc    func(ctx context.Context) (int64, error)
}

func (m *mockLedger) Persist(ctx context.Context, record domain.RefreshTokenRecord) error {
	if m.persistFunc != nil {
		return m.persistFunc(ctx, record)
	}
	return nil
}

func (m *mockLedger) FindByJTI(ctx context.Context, jti string) (domain.RefreshTokenRecord, error) {
	if m.findByJTIFunc != nil {
		return m.findByJTIFunc(ctx, jti)
	}
	return domain.RefreshTokenRecord{}, authrepo.ErrRefreshTokenNotFound
}

func (m *mockLedger) Revoke(ctx context.Context, jti string) (bool, error) {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, jti)
	}
	return true, nil
}

func (m *mockLedger) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	if m.revokeAllForUserFunc != nil {
		return m.revokeAllForUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockLedger) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFunc != nil {
		return m.deleteExpiredFunc(ctx)
	}
	return 0, nil
}

// fakePasswordHasher keeps tests fast; bcrypt cost 12 takes most of a
// second per hash.
type fakePasswordHasher struct{}

var errWrongPassword = errors.New("wrong password")

func (fakePasswordHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakePasswordHasher) Compare(hash string, password string) error {
	if hash != "hashed:"+password {
		return errWrongPassword
	}
	return nil
}

func setupAuthService(t *testing.T) (*service.AuthService, *mockUserRepo, *mockLedger, *clock.MockClock, *service.TokenIssuer) {
	t.Helper()

	mockClock := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	idGenerator := commoncrypto.NewUUIDGenerator()
	issuer := service.NewTokenIssuer(
		testAccessSecret,
		testRefreshSecret,
		idGenerator,
		15*time.Minute,
		7*24*time.Hour,
		mockClock,
	)

	users := &mockUserRepo{}
	ledger := &mockLedger{}

	svc := service.NewAuthService(
		users,
		ledger,
		issuer,
		fakePasswordHasher{},
		&commoncrypto.SHA256TokenHasher{},
		idGenerator,
		mockClock,
		logger.NewNop(),
	)

	return svc, users, ledger, mockClock, issuer
}
