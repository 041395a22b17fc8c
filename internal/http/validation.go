package http

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"nzql/internal/core"
)

var (
	hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	clockRegex    = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// newValidator returns a validator that reports JSON field names and knows
// the domain rules.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("hex_color", validateHexColor)
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("account_type", validateAccountType)
	_ = v.RegisterValidation("clock", validateClock)
	_ = v.RegisterValidation("iso_date", validateISODate)
	return v
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return core.TransactionType(fl.Field().String()).IsValid()
}

func validateAccountType(fl validator.FieldLevel) bool {
	return core.AccountType(fl.Field().String()).IsValid()
}

func validateClock(fl validator.FieldLevel) bool {
	return clockRegex.MatchString(fl.Field().String())
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(core.DateLayout, fl.Field().String())
	return err == nil
}

// validationError converts validator output into a VALIDATION_FAILED error
// naming the first offending field.
func validationError(err error) *AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Wrap(ErrInvalidInput, err)
	}
	fe := verrs[0]
	msg := fmt.Sprintf("%s failed %s", fieldPath(fe), fe.Tag())
	if fe.Param() != "" {
		msg = fmt.Sprintf("%s failed %s=%s", fieldPath(fe), fe.Tag(), fe.Param())
	}
	return &AppError{
		Code:       ErrValidationFailed.Code,
		Message:    msg,
		StatusCode: ErrValidationFailed.StatusCode,
		Internal:   err,
	}
}

// fieldPath drops the struct name the validator puts in front of the
// namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
