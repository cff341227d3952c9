package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/dozo/internal/api/shared"
	"github.com/phrazzld/dozo/internal/notification"
	"github.com/phrazzld/dozo/internal/platform/logger"
)

// TickRunner runs one pass of a notification job.
type TickRunner interface {
	RunReminderTick(ctx context.Context) (notification.TickReport, error)
	RunDigestTick(ctx context.Context) (notification.TickReport, error)
}

// AdminHandler exposes manual triggers for the notification jobs. Manual
// runs go through the same delivery gate as scheduled ones, so a trigger
// never re-sends a reminder or overdue notice already delivered.
type AdminHandler struct {
	runner TickRunner
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(runner TickRunner, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AdminHandler")
	}
	return &AdminHandler{
		runner: runner,
		logger: logger.With(slog.String("component", "admin_handler")),
	}
}

// Mount registers the admin routes under r.
func (h *AdminHandler) Mount(r chi.Router) {
	r.Post("/admin/ticks/reminders", h.RunReminders)
	r.Post("/admin/ticks/digest", h.RunDigest)
}

// RunReminders handles POST /admin/ticks/reminders.
func (h *AdminHandler) RunReminders(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, notification.JobReminders, h.runner.RunReminderTick)
}

// RunDigest handles POST /admin/ticks/digest.
func (h *AdminHandler) RunDigest(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, notification.JobDigest, h.runner.RunDigestTick)
}

func (h *AdminHandler) run(
	w http.ResponseWriter,
	r *http.Request,
	job string,
	tick func(context.Context) (notification.TickReport, error),
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// The tick outlives a client that hangs up mid-run.
	report, err := tick(context.WithoutCancel(r.Context()))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Tick completed with errors", err)
		return
	}

	log.Info("manual tick completed",
		slog.String("job", job),
		slog.Int("sent", report.Sent),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed))
	shared.RespondWithJSON(w, r, http.StatusOK, TickResponse{Job: job, Report: report})
}
