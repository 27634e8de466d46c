package dto

import (
	"time"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
)

// PatchUserRequest payload for profile updates.
type PatchUserRequest struct {
	Username   *string `json:"username"`
	Email      *string `json:"email"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
	Position   *string `json:"position"`
	Branch     *string `json:"branch"`
	Location   *string `json:"location"`
}

// UserResponse response.
type UserResponse struct {
	ID              string      `json:"id"`
	Username        string      `json:"username"`
	Email           string      `json:"email"`
	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	Phone           string      `json:"phone"`
	Department      string      `json:"department"`
	Position        string      `json:"position"`
	Branch          string      `json:"branch"`
	Location        string      `json:"location"`
	Role            domain.Role `json:"role"`
	IsEmailVerified bool        `json:"is_email_verified"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewUserResponse maps the domain model.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Phone:           user.Phone,
		Department:      user.Department,
		Position:        user.Position,
		Branch:          user.Branch,
		Location:        user.Location,
		Role:            user.Role,
		IsEmailVerified: user.IsEmailVerified,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

// AuditEntryResponse response.
type AuditEntryResponse struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAuditEntryResponse maps the domain model.
func NewAuditEntryResponse(entry *domain.AuditLog) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        entry.ID,
		ActorID:   entry.ActorID,
		Event:     entry.Event,
		Timestamp: entry.Timestamp,
	}
}
