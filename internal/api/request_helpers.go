package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/api/shared"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/platform/logger"
)

// errMalformedBody wraps JSON decoding failures.
var errMalformedBody = errors.New("malformed request body")

// getPathUUID extracts a UUID from the URL path parameters.
// It parses and validates the UUID, handling common error cases.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidID, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}

	return id, nil
}

// handlePathUUIDs extracts every named path UUID in order. It writes an
// error response and returns false when any of them is missing or invalid.
func handlePathUUIDs(w http.ResponseWriter, r *http.Request, paramNames ...string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(paramNames))
	for _, name := range paramNames {
		id, err := getPathUUID(r, name)
		if err != nil {
			logger.FromContextOrDefault(r.Context(), slog.Default()).Debug("invalid path parameter",
				slog.String("param_name", name),
				slog.String("value", chi.URLParam(r, name)))
			HandleAPIError(w, r, err, "")
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// decodeAndValidate decodes the JSON body into v and validates it. On
// failure it writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := shared.DecodeJSON(w, r, v); err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %w", errMalformedBody, err), "")
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}
