package api

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/notification"
	"github.com/phrazzld/dozo/internal/service"
)

// Wire formats for due dates and times.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email"    validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ProfileRequest replaces the editable profile fields.
type ProfileRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email"    validate:"required,email,max=120"`
	Bio      string `json:"bio"      validate:"max=300"`
}

// PreferencesRequest replaces all three subscriptions at once.
type PreferencesRequest struct {
	Reminder *bool `json:"reminder" validate:"required"`
	Overdue  *bool `json:"overdue"  validate:"required"`
	Digest   *bool `json:"digest"   validate:"required"`
}

// ChangePasswordRequest defines the payload for changing a password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          uuid.UUID          `json:"id"`
	Username    string             `json:"username"`
	Email       string             `json:"email"`
	Bio         string             `json:"bio,omitempty"`
	Preferences domain.Preferences `json:"preferences"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// TaskRequest defines the payload for creating or editing a task. Omitting
// due_date clears it.
type TaskRequest struct {
	Title    string `json:"title"    validate:"required,max=256"`
	Priority string `json:"priority" validate:"omitempty,oneof=low normal high"`
	DueDate  string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	DueTime  string `json:"due_time" validate:"omitempty,datetime=15:04"`
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Title        string          `json:"title"`
	Completed    bool            `json:"completed"`
	Priority     domain.Priority `json:"priority"`
	DueDate      *string         `json:"due_date"`
	DueTime      *string         `json:"due_time"`
	ReminderSent bool            `json:"reminder_sent"`
	OverdueSent  bool            `json:"overdue_sent"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ClearCompletedResponse reports how many tasks were removed.
type ClearCompletedResponse struct {
	Deleted int64 `json:"deleted"`
}

// TickResponse is returned by the manual tick endpoints.
type TickResponse struct {
	Job    string                  `json:"job"`
	Report notification.TickReport `json:"report"`
}

// toInput converts the request into service input. The request must have
// passed validation.
func (req TaskRequest) toInput() (service.TaskInput, error) {
	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		return service.TaskInput{}, err
	}
	input := service.TaskInput{Title: req.Title, Priority: priority}

	if req.DueDate != "" {
		d, err := civil.ParseDate(req.DueDate)
		if err != nil {
			return service.TaskInput{}, fmt.Errorf("%w: due_date", domain.ErrValidation)
		}
		input.DueDate = &d
	}
	if req.DueTime != "" {
		t, err := time.Parse(TimeLayout, req.DueTime)
		if err != nil {
			return service.TaskInput{}, fmt.Errorf("%w: due_time", domain.ErrValidation)
		}
		ct := civil.TimeOf(t)
		input.DueTime = &ct
	}
	return input, nil
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Bio:         u.Bio,
		Preferences: u.Preferences,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func newTaskResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:           t.ID,
		UserID:       t.UserID,
		Title:        t.Title,
		Completed:    t.Completed,
		Priority:     t.Priority,
		ReminderSent: t.ReminderSent,
		OverdueSent:  t.OverdueSent,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.DueDate != nil {
		s := t.DueDate.String()
		resp.DueDate = &s
	}
	if t.DueTime != nil {
		s := fmt.Sprintf("%02d:%02d", t.DueTime.Hour, t.DueTime.Minute)
		resp.DueTime = &s
	}
	return resp
}

func newTaskResponses(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, newTaskResponse(t))
	}
	return out
}
