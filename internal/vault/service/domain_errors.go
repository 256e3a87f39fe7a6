package service

import (
	"net/http"

	commonerrors "github.com/cipher-calc/backend/internal/common/errors"
)

var (
	// Unknown and empty codes collapse into one response so callers cannot
	// probe which codes are assigned.
	ErrSecretCodeInvalid = commonerrors.NewDomainError(
		"SECRET_CODE_INVALID",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid secret code",
	)

	ErrMessageNotFound = commonerrors.NewDomainError(
		"MESSAGE_NOT_FOUND",
		commonerrors.CategoryNotFound,
		http.StatusNotFound,
		"message not found",
	)

	ErrRecipientNotFound = commonerrors.NewDomainError(
		"RECIPIENT_NOT_FOUND",
		commonerrors.CategoryNotFound,
		http.StatusNotFound,
		"recipient not found",
	)

	ErrRecipientRequired = commonerrors.NewDomainError(
		"RECIPIENT_REQUIRED",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"user_id or secret_code is required",
	)
)
