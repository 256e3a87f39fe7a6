package service

import (
	"net/http"

	commonerrors "github.com/cipher-calc/backend/internal/common/errors"
)

var (
	ErrEmailTaken = commonerrors.NewDomainError(
		"EMAIL_TAKEN",
		commonerrors.CategoryConflict,
		http.StatusConflict,
		"email already in use",
	)

	// Bad email and bad password collapse into this one error so callers
	// cannot probe which accounts exist.
	ErrInvalidCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid credentials",
	)

	ErrInvalidRefreshToken = commonerrors.NewDomainError(
		"INVALID_REFRESH_TOKEN",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid refresh token",
	)

	ErrInvalidRefreshPayload = commonerrors.NewDomainError(
		"INVALID_REFRESH_PAYLOAD",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid refresh token payload",
	)

	ErrRefreshTokenRevoked = commonerrors.NewDomainError(
		"REFRESH_TOKEN_REVOKED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"refresh token revoked or missing",
	)

	ErrRefreshTokenExpired = commonerrors.NewDomainError(
		"REFRESH_TOKEN_EXPIRED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"refresh token expired",
	)

	ErrUserNotFound = commonerrors.NewDomainError(
		"USER_NOT_FOUND",
		commonerrors.CategoryNotFound,
		http.StatusNotFound,
		"user not found",
	)

	ErrUserIDRequired = commonerrors.NewDomainError(
		"USER_ID_REQUIRED",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"userId is required to logout",
	)
)
