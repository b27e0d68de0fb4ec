// Package validation decides whether inbound products and chat messages may be
// persisted. The same rules run on every append path.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"catalog-chat/internal/domain"
	catalog_errors "catalog-chat/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", notBlank)
	return v
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Error is a rejected candidate. It unwraps to catalog_errors.ErrInvalidInput.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func (e *Error) Unwrap() error {
	return catalog_errors.ErrInvalidInput
}

func IsValidProduct(candidate domain.ProductInput) bool {
	return ValidateProduct(candidate) == nil
}

func IsValidMessage(candidate domain.ChatMessage) bool {
	return ValidateMessage(candidate) == nil
}

func ValidateProduct(candidate domain.ProductInput) error {
	return check(candidate)
}

func ValidateMessage(candidate domain.ChatMessage) error {
	return check(candidate)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &Error{Field: fe.Field(), Reason: reason(fe)}
	}
	return &Error{Reason: err.Error()}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "http_url":
		return fmt.Sprintf("%s must be an http(s) URL", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// DecodeError marks a payload that could not be decoded into a candidate.
func DecodeError(err error) error {
	return &Error{Reason: fmt.Sprintf("malformed payload: %v", err)}
}
