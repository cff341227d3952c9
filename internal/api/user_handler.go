package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/dozo/internal/api/shared"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/platform/logger"
	"github.com/phrazzld/dozo/internal/service"
)

// UserHandler handles account and preference requests.
type UserHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users service.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for UserHandler")
	}
	return &UserHandler{
		users:  users,
		logger: logger.With(slog.String("component", "user_handler")),
	}
}

// Mount registers the user routes under r.
func (h *UserHandler) Mount(r chi.Router) {
	r.Post("/users", h.Register)
	r.Get("/users/{userID}", h.GetUser)
	r.Put("/users/{userID}", h.UpdateProfile)
	r.Delete("/users/{userID}", h.DeleteUser)
	r.Put("/users/{userID}/preferences", h.UpdatePreferences)
	r.Put("/users/{userID}/password", h.ChangePassword)
}

// Register handles POST /users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to register user")
		return
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, newUserResponse(user))
}

// GetUser handles GET /users/{userID}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, "userID")
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), ids[0])
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newUserResponse(user))
}

// UpdateProfile handles PUT /users/{userID}.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, "userID")
	if !ok {
		return
	}
	var req ProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), ids[0], service.ProfileInput{
		Username: req.Username,
		Email:    req.Email,
		Bio:      req.Bio,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update profile")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newUserResponse(user))
}

// UpdatePreferences handles PUT /users/{userID}/preferences.
func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ids, ok := handlePathUUIDs(w, r, "userID")
	if !ok {
		return
	}
	var req PreferencesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	prefs := domain.Preferences{Reminder: *req.Reminder, Overdue: *req.Overdue, Digest: *req.Digest}
	user, err := h.users.UpdatePreferences(r.Context(), ids[0], prefs)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update preferences")
		return
	}

	log.Debug("preferences updated",
		slog.String("user_id", user.ID.String()),
		slog.Bool("reminder", prefs.Reminder),
		slog.Bool("overdue", prefs.Overdue),
		slog.Bool("digest", prefs.Digest))
	shared.RespondWithJSON(w, r, http.StatusOK, newUserResponse(user))
}

// ChangePassword handles PUT /users/{userID}/password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, "userID")
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.users.ChangePassword(r.Context(), ids[0], req.CurrentPassword, req.NewPassword); err != nil {
		HandleAPIError(w, r, err, "Failed to change password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser handles DELETE /users/{userID}. The user's tasks go with it.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ids, ok := handlePathUUIDs(w, r, "userID")
	if !ok {
		return
	}
	if err := h.users.DeleteUser(r.Context(), ids[0]); err != nil {
		HandleAPIError(w, r, err, "Failed to delete user")
		return
	}

	log.Info("user deleted", slog.String("user_id", ids[0].String()))
	w.WriteHeader(http.StatusNoContent)
}
