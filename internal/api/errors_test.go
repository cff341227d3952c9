package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/service"
	"github.com/phrazzld/dozo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	wrapped := func(err error) error {
		return &service.ServiceError{Service: "task", Operation: "update", Err: err}
	}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid credentials", wrapped(service.ErrInvalidCredentials), http.StatusUnauthorized},
		{"not owned", wrapped(service.ErrTaskNotOwned), http.StatusForbidden},
		{"task not found", wrapped(store.ErrTaskNotFound), http.StatusNotFound},
		{"user not found", store.ErrUserNotFound, http.StatusNotFound},
		{"email exists", store.ErrEmailExists, http.StatusConflict},
		{"username exists", wrapped(store.ErrUsernameExists), http.StatusConflict},
		{"invalid entity", fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrValidation), http.StatusBadRequest},
		{"empty title", wrapped(domain.ErrEmptyTitle), http.StatusBadRequest},
		{"priority", fmt.Errorf("%w: %q", domain.ErrInvalidPriority, "urgent"), http.StatusBadRequest},
		{"malformed body", fmt.Errorf("%w: %w", errMalformedBody, errors.New("unexpected EOF")), http.StatusBadRequest},
		{"body too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(errors.New("pq: password authentication failed")))
	assert.Equal(t, "Invalid priority", GetSafeErrorMessage(fmt.Errorf("%w: %q", domain.ErrInvalidPriority, "urgent")))
	assert.Equal(t, "Password must be at least 8 characters long", GetSafeErrorMessage(domain.ErrPasswordTooShort))
	assert.Equal(t, "Invalid entity data", GetSafeErrorMessage(fmt.Errorf("%w: due date", domain.ErrValidation)))
	assert.Equal(t, "Username already exists", GetSafeErrorMessage(store.ErrUsernameExists))
}

func TestSanitizeValidationError(t *testing.T) {
	v := validator.New()
	err := v.Struct(TaskRequest{Title: "x", DueTime: "7pm"})
	require.Error(t, err)

	assert.Equal(t, "Invalid DueTime: invalid format", SanitizeValidationError(err))
	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}

func TestTaskRequestToInput(t *testing.T) {
	input, err := TaskRequest{Title: "t", Priority: "LOW", DueDate: "2025-03-10", DueTime: "07:05"}.toInput()
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityLow, input.Priority)
	require.NotNil(t, input.DueDate)
	assert.Equal(t, "2025-03-10", input.DueDate.String())
	require.NotNil(t, input.DueTime)
	assert.Equal(t, 7, input.DueTime.Hour)
	assert.Equal(t, 5, input.DueTime.Minute)

	input, err = TaskRequest{Title: "t"}.toInput()
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityNormal, input.Priority)
	assert.Nil(t, input.DueDate)
	assert.Nil(t, input.DueTime)
}
