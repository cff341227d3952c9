package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/dozo/internal/api/shared"
	"github.com/phrazzld/dozo/internal/platform/logger"
	"github.com/phrazzld/dozo/internal/service"
)

// TaskHandler handles task requests for a single owning user.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// Mount registers the task routes under r.
func (h *TaskHandler) Mount(r chi.Router) {
	r.Get("/users/{userID}/tasks", h.ListTasks)
	r.Post("/users/{userID}/tasks", h.CreateTask)
	r.Post("/users/{userID}/tasks/clear-completed", h.ClearCompleted)
	r.Get("/users/{userID}/tasks/{taskID}", h.GetTask)
	r.Put("/users/{userID}/tasks/{taskID}", h.UpdateTask)
	r.Delete("/users/{userID}/tasks/{taskID}", h.DeleteTask)
	r.Post("/users/{userID}/tasks/{taskID}/toggle", h.ToggleTask)
}

// ListTasks handles GET /users/{userID}/tasks. The optional completed query
// parameter filters by state.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, "userID")
	if !ok {
		return
	}

	var completed *bool
	if raw := r.URL.Query().Get("completed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid completed: invalid value")
			return
		}
		completed = &v
	}

	tasks, err := h.tasks.ListTasks(r.Context(), ids[0], completed)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponses(tasks))
}

// CreateTask handles POST /users/{userID}/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ids, ok := handlePathUUIDs(w, r, "userID")
	if !ok {
		return
	}
	input, ok := h.decodeTask(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), ids[0], input)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	log.Debug("task created",
		slog.String("user_id", ids[0].String()),
		slog.String("task_id", task.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, newTaskResponse(task))
}

// GetTask handles GET /users/{userID}/tasks/{taskID}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, "userID", "taskID")
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), ids[0], ids[1])
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(task))
}

// UpdateTask handles PUT /users/{userID}/tasks/{taskID}. Changing the due
// date makes the task eligible for its reminder and overdue notice again.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, "userID", "taskID")
	if !ok {
		return
	}
	input, ok := h.decodeTask(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), ids[0], ids[1], input)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(task))
}

// ToggleTask handles POST /users/{userID}/tasks/{taskID}/toggle.
func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, "userID", "taskID")
	if !ok {
		return
	}

	task, err := h.tasks.ToggleTask(r.Context(), ids[0], ids[1])
	if err != nil {
		HandleAPIError(w, r, err, "Failed to toggle task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(task))
}

// DeleteTask handles DELETE /users/{userID}/tasks/{taskID}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, "userID", "taskID")
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), ids[0], ids[1]); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCompleted handles POST /users/{userID}/tasks/clear-completed.
func (h *TaskHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ids, ok := handlePathUUIDs(w, r, "userID")
	if !ok {
		return
	}

	n, err := h.tasks.ClearCompleted(r.Context(), ids[0])
	if err != nil {
		HandleAPIError(w, r, err, "Failed to clear completed tasks")
		return
	}

	log.Debug("completed tasks cleared",
		slog.String("user_id", ids[0].String()),
		slog.Int64("deleted", n))
	shared.RespondWithJSON(w, r, http.StatusOK, ClearCompletedResponse{Deleted: n})
}

func (h *TaskHandler) decodeTask(w http.ResponseWriter, r *http.Request) (service.TaskInput, bool) {
	var req TaskRequest
	if !decodeAndValidate(w, r, &req) {
		return service.TaskInput{}, false
	}
	input, err := req.toInput()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return service.TaskInput{}, false
	}
	return input, true
}
