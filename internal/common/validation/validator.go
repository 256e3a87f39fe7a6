package validation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	commonerrors "github.com/cipher-calc/backend/internal/common/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var ErrValidationFailed = commonerrors.NewDomainError(
	"VALIDATION_FAILED",
	commonerrors.CategoryValidation,
	http.StatusBadRequest,
	"validation failed",
)

// Struct runs tag-based validation and folds the first violation into a
// 400 DomainError with a field-level message.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return ErrValidationFailed.WithCause(err)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return commonerrors.NewDomainError(
			"VALIDATION_FAILED",
			commonerrors.CategoryValidation,
			http.StatusBadRequest,
			fieldMessage(fe),
		).WithCause(err)
	}

	return ErrValidationFailed.WithCause(err)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
