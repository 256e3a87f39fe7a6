package service

import (
	"context"
	"errors"

	"github.com/cipher-calc/backend/internal/auth/domain"
	authrepo "github.com/cipher-calc/backend/internal/auth/repository"
	"github.com/cipher-calc/backend/internal/common/clock"
	commoncrypto "github.com/cipher-calc/backend/internal/common/crypto"
	"github.com/cipher-calc/backend/internal/common/logger"
)

// AuthService orchestrates registration, login, refresh rotation and logout.
// It holds no state of its own between requests; every decision about a
// refresh token consults the durable ledger.
type AuthService struct {
	users          authrepo.UserRepository
	ledger         authrepo.RefreshTokenLedger
	issuer         *TokenIssuer
	passwordHasher commoncrypto.PasswordHasher
	tokenHasher    commoncrypto.TokenHasher
	idGenerator    commoncrypto.IDGenerator
	clock          clock.Clock
	log            *logger.Logger
}

func NewAuthService(
	users authrepo.UserRepository,
	ledger authrepo.RefreshTokenLedger,
	issuer *TokenIssuer,
	passwordHasher commoncrypto.PasswordHasher,
	tokenHasher commoncrypto.TokenHasher,
	idGenerator commoncrypto.IDGenerator,
	clk clock.Clock,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		users:          users,
		ledger:         ledger,
		issuer:         issuer,
		passwordHasher: passwordHasher,
		tokenHasher:    tokenHasher,
		idGenerator:    idGenerator,
		clock:          clk,
		log:            log,
	}
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AuthResult struct {
	User   domain.Summary `json:"user"`
	Tokens TokenPair      `json:"tokens"`
}

func (s *AuthService) Register(ctx context.Context, email, password string) (AuthResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "register_attempt",
	}).Info("register attempt")

	hash, err := s.passwordHasher.Hash(password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return AuthResult{}, err
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return AuthResult{}, err
	}

	user := domain.User{
		ID:           domain.UserID(id),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, authrepo.ErrEmailAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{
				"email":  email,
				"action": "register_email_exists",
			}).Warn("register failed: email already in use")
			return AuthResult{}, ErrEmailTaken
		}
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_create_failed",
		}).Errorf("register failed: %v", err)
		return AuthResult{}, err
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":   email,
			"user_id": string(user.ID),
			"action":  "register_token_issue_failed",
		}).Errorf("register failed: token issue error: %v", err)
		return AuthResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"email":   email,
		"user_id": string(user.ID),
		"action":  "register_success",
	}).Info("register success")

	return result, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "login_attempt",
	}).Info("login attempt")

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, authrepo.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"email":  email,
				"action": "login_user_not_found",
			}).Warn("login failed: unknown email")
			return AuthResult{}, ErrInvalidCredentials
		}
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		return AuthResult{}, err
	}

	if err := s.passwordHasher.Compare(user.PasswordHash, password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "login_invalid_password",
		}).Warn("login failed: invalid password")
		return AuthResult{}, ErrInvalidCredentials
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":   email,
			"user_id": string(user.ID),
			"action":  "login_token_issue_failed",
		}).Errorf("login failed: token issue error: %v", err)
		return AuthResult{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"email":   email,
		"user_id": string(user.ID),
		"action":  "login_success",
	}).Info("login success")

	return result, nil
}

// Refresh redeems a refresh token for a fresh access+refresh pair. A token
// redeems at most once: the ledger record is revoked before the new pair is
// issued, and the conditional revoke elects exactly one winner when the same
// token races itself.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (AuthResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"action": "refresh_attempt",
	}).Info("refresh attempt")

	claims, err := s.issuer.VerifyRefreshToken(rawToken)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "refresh_verify_failed",
		}).Warnf("refresh failed: %v", err)
		return AuthResult{}, err
	}

	record, err := s.ledger.FindByJTI(ctx, claims.JTI)
	if err != nil {
		if errors.Is(err, authrepo.ErrRefreshTokenNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"action": "refresh_record_missing",
			}).Warn("refresh failed: no ledger record")
			incrementRefreshTokensReplayed()
			return AuthResult{}, ErrRefreshTokenRevoked
		}
		return AuthResult{}, err
	}

	if record.Revoked {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": record.UserID,
			"action":  "refresh_record_revoked",
		}).Warn("refresh failed: record already revoked")
		incrementRefreshTokensReplayed()
		return AuthResult{}, ErrRefreshTokenRevoked
	}

	if err := s.tokenHasher.Compare(record.TokenHash, rawToken); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": record.UserID,
			"action":  "refresh_hash_mismatch",
		}).Warn("refresh failed: stored hash mismatch")
		return AuthResult{}, ErrInvalidRefreshToken
	}

	// Ledger-side expiry is checked independently of the signature's own
	// exp claim; the record is authoritative even under clock skew.
	if !s.clock.Now().Before(record.ExpiresAt) {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": record.UserID,
			"action":  "refresh_record_expired",
		}).Warn("refresh failed: record expired")
		incrementRefreshTokensExpired()
		return AuthResult{}, ErrRefreshTokenExpired
	}

	rotated, err := s.ledger.Revoke(ctx, claims.JTI)
	if err != nil {
		return AuthResult{}, err
	}
	if !rotated {
		// Lost the race against a concurrent redemption of the same token.
		s.log.WithFields(ctx, logger.Fields{
			"user_id": record.UserID,
			"action":  "refresh_rotation_lost_race",
		}).Warn("refresh failed: concurrent redemption won")
		incrementRefreshTokensReplayed()
		return AuthResult{}, ErrRefreshTokenRevoked
	}

	user, err := s.users.FindByID(ctx, domain.UserID(claims.Subject))
	if err != nil {
		if errors.Is(err, authrepo.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"user_id": claims.Subject,
				"action":  "refresh_user_gone",
			}).Warn("refresh failed: account no longer exists")
			return AuthResult{}, ErrUserNotFound
		}
		return AuthResult{}, err
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "refresh_token_issue_failed",
		}).Errorf("refresh failed: token issue error: %v", err)
		return AuthResult{}, err
	}

	incrementRefreshTokensRotated()
	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "refresh_success",
	}).Info("refresh success")

	return result, nil
}

// Logout revokes every live refresh record for the account. Outstanding
// access tokens stay valid until natural expiry.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	revoked, err := s.ledger.RevokeAllForUser(ctx, userID)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "logout_revoke_failed",
		}).Errorf("logout failed: %v", err)
		return err
	}

	incrementRefreshTokensRevoked(revoked)
	s.log.WithFields(ctx, logger.Fields{
		"user_id": userID,
		"revoked": revoked,
		"action":  "logout_success",
	}).Info("logout success")

	return nil
}

func (s *AuthService) issueSession(ctx context.Context, user domain.User) (AuthResult, error) {
	accessToken, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return AuthResult{}, err
	}

	refresh, err := s.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return AuthResult{}, err
	}

	record := domain.RefreshTokenRecord{
		JTI:       refresh.JTI,
		UserID:    string(user.ID),
		TokenHash: s.tokenHasher.Hash(refresh.Token),
		ExpiresAt: refresh.ExpiresAt,
		CreatedAt: s.clock.Now(),
	}

	if err := s.ledger.Persist(ctx, record); err != nil {
		// A jti collision means the generator handed out a duplicate id;
		// the ledger's uniqueness constraint is the last line of defense.
		if errors.Is(err, authrepo.ErrDuplicateJTI) {
			s.log.WithFields(ctx, logger.Fields{
				"user_id": string(user.ID),
				"action":  "refresh_jti_collision",
			}).Critical("refresh token jti collision detected")
		}
		return AuthResult{}, err
	}

	return AuthResult{
		User:   user.Summary(),
		Tokens: TokenPair{AccessToken: accessToken, RefreshToken: refresh.Token},
	}, nil
}
