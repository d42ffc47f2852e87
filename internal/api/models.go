// Package api implements the HTTP handlers for user accounts, tasks, and
// Trello account linking.
package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orbital-hq/taskboard-api/internal/domain"
)

// RegisterRequest is the payload for user registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserResponse is the public view of a user account.
type UserResponse struct {
	ID           uuid.UUID         `json:"id"`
	Username     string            `json:"username"`
	ExternalData map[string]string `json:"external_data"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewUserResponse maps a user onto its public view.
func NewUserResponse(user *domain.User) UserResponse {
	data := user.ExternalData
	if data == nil {
		data = map[string]string{}
	}
	return UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		ExternalData: data,
		CreatedAt:    user.CreatedAt,
	}
}

// CreateTaskRequest is the payload for creating a task. Which fields are
// required depends on the task type; those rules live in the domain layer.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Type        string `json:"type"`
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	ReceivedAt  time.Time       `json:"received_at"`
	TrelloData  json.RawMessage `json:"trello_data,omitempty"`
	FailCount   int             `json:"fail_count"`
}

// NewTaskResponse maps a task onto its public view.
func NewTaskResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Category:    string(task.Category),
		Type:        string(task.Type),
		Status:      string(task.Status),
		ReceivedAt:  task.ReceivedAt,
		TrelloData:  task.TrelloData,
		FailCount:   task.FailCount,
	}
}

// NewTaskListResponse maps a slice of tasks onto their public views.
func NewTaskListResponse(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, NewTaskResponse(task))
	}
	return out
}

// AuthURLResponse carries the Trello authorization URL.
type AuthURLResponse struct {
	URL string `json:"url"`
}

// SetTokenRequest is the payload for linking a Trello token.
type SetTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// ResultResponse is a generic confirmation message.
type ResultResponse struct {
	Result string `json:"result"`
}
