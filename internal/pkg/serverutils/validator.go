package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"prompt-optimiser-be/pkg/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequest checks struct tags and reports the first failure as a validation error.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("invalid request")
	}

	fe := fieldErrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return apperr.Validationf("%s is required", field)
	case "max":
		return apperr.Validationf("%s exceeds %s characters", field, fe.Param())
	case "oneof":
		return apperr.Validationf("%s must be one of: %s", field, fe.Param())
	default:
		return apperr.Validation(fmt.Sprintf("%s is invalid", field))
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
