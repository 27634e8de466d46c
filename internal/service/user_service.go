package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/authz"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/repository"
	apperrors "github.com/Thinkpad-Django-Lenovo/helpdesk/pkg/util"
)

var phonePattern = regexp.MustCompile(`^\+?\d{7,20}$`)

// UserService mutates identity profiles. Registration, credentials and hard
// deletion are external admin actions; this core only updates and reads.
type UserService struct {
	store repository.Store
}

// NewUserService constructs the service.
func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

// UserPatch describes a partial profile update. Nil fields are left
// unchanged.
type UserPatch struct {
	Username   *string
	Email      *string
	FirstName  *string
	LastName   *string
	Phone      *string
	Department *string
	Position   *string
	Branch     *string
	Location   *string
}

// Update patches a profile. Self or super_admin only; username and email
// stay unique case-insensitively.
func (s *UserService) Update(ctx context.Context, actor *domain.User, id string, patch UserPatch) (*domain.User, error) {
	var user *domain.User
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = s.loadUser(ctx, tx, id)
		if err != nil {
			return err
		}
		rel := authz.RelationNone
		if actor.ID == user.ID {
			rel = authz.RelationSelf
		}
		if !authz.Allow(actor.Role, authz.ActionUserUpdate, rel) {
			return apperrors.NewForbidden("you do not have permission to update this user")
		}

		if patch.Username != nil {
			username := strings.ToLower(strings.TrimSpace(*patch.Username))
			if username == "" {
				return apperrors.NewValidationError("username is required", nil)
			}
			taken, err := tx.Users().UsernameTaken(ctx, username, user.ID)
			if err != nil {
				return apperrors.MapError(err)
			}
			if taken {
				return apperrors.NewValidationError("this username is already taken",
					map[string]any{"username": username})
			}
			user.Username = username
		}
		if patch.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*patch.Email))
			if email == "" {
				return apperrors.NewValidationError("email is required", nil)
			}
			taken, err := tx.Users().EmailTaken(ctx, email, user.ID)
			if err != nil {
				return apperrors.MapError(err)
			}
			if taken {
				return apperrors.NewValidationError("this email is already registered",
					map[string]any{"email": email})
			}
			user.Email = email
		}
		if patch.FirstName != nil {
			if len(strings.TrimSpace(*patch.FirstName)) < 2 {
				return apperrors.NewValidationError("first name must be at least 2 characters", nil)
			}
			user.FirstName = *patch.FirstName
		}
		if patch.LastName != nil {
			if len(strings.TrimSpace(*patch.LastName)) < 2 {
				return apperrors.NewValidationError("last name must be at least 2 characters", nil)
			}
			user.LastName = *patch.LastName
		}
		if patch.Phone != nil {
			phone := strings.TrimSpace(*patch.Phone)
			if phone != "" && !phonePattern.MatchString(phone) {
				return apperrors.NewValidationError("enter a valid phone number", nil)
			}
			user.Phone = phone
		}
		if patch.Department != nil {
			user.Department = *patch.Department
		}
		if patch.Position != nil {
			user.Position = *patch.Position
		}
		if patch.Branch != nil {
			user.Branch = *patch.Branch
		}
		if patch.Location != nil {
			user.Location = *patch.Location
		}

		if err := tx.Users().Update(ctx, user); err != nil {
			return apperrors.MapError(err)
		}
		return appendAudit(ctx, tx, actor.ID, fmt.Sprintf("updated profile of user %s", user.ID))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns one profile.
func (s *UserService) Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if !authz.Allow(actor.Role, authz.ActionUserView, authz.RelationNone) {
		return nil, apperrors.NewForbidden("you do not have permission to view users")
	}
	return s.loadUser(ctx, s.store, id)
}

// List returns every profile for staff, only the caller's own otherwise.
func (s *UserService) List(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if !authz.Allow(actor.Role, authz.ActionUserList, authz.RelationNone) {
		return nil, apperrors.NewForbidden("you do not have permission to list users")
	}
	if actor.Role.IsStaff() {
		users, err := s.store.Users().List(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return users, nil
	}
	self, err := s.loadUser(ctx, s.store, actor.ID)
	if err != nil {
		return nil, err
	}
	return []domain.User{*self}, nil
}

func (s *UserService) loadUser(ctx context.Context, tx repository.Store, id string) (*domain.User, error) {
	user, err := tx.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
