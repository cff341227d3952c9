package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/dozo/internal/api/shared"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/service"
	"github.com/phrazzld/dozo/internal/store"
)

// userFacingDomainErrors are domain errors whose message is safe to show
// to a client verbatim.
var userFacingDomainErrors = []error{
	domain.ErrEmptyTitle,
	domain.ErrTitleTooLong,
	domain.ErrInvalidPriority,
	domain.ErrEmptyEmail,
	domain.ErrInvalidEmail,
	domain.ErrInvalidUsername,
	domain.ErrPasswordTooShort,
	domain.ErrPasswordTooLong,
	domain.ErrBioTooLong,
	domain.ErrInvalidID,
}

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError

	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrTaskNotOwned):
		return http.StatusForbidden

	case store.IsNotFoundError(err):
		return http.StatusNotFound

	case store.IsDuplicateError(err):
		return http.StatusConflict

	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge

	case errors.As(err, &validationErrs),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr),
		errors.Is(err, errMalformedBody),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		isUserFacingDomainError(err):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, service.ErrTaskNotOwned):
		return "You do not own this task"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, store.ErrUsernameExists):
		return "Username already exists"

	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)

	case errors.As(err, &maxBytesErr):
		return "Request body too large"

	case MapErrorToStatusCode(err) == http.StatusBadRequest:
		for _, target := range userFacingDomainErrors {
			if errors.Is(err, target) {
				return capitalize(target.Error())
			}
		}
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, store.ErrInvalidEntity) {
			return "Invalid entity data"
		}
		return "Invalid request format"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a short message
// naming the first failing field.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "Validation error"
	}
	fe := validationErrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "datetime":
		return "invalid format"
	default:
		return "validation failed"
	}
}

// HandleAPIError maps err to a status code and a safe message and writes
// the error response. fallback replaces the generic message for errors
// that map to 500.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		msg = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err)
}

func isUserFacingDomainError(err error) bool {
	for _, target := range userFacingDomainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
