package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/wgdash/wg-dashboard/internal/authz"
	"github.com/wgdash/wg-dashboard/internal/events"
	"github.com/wgdash/wg-dashboard/internal/logging"
	"github.com/wgdash/wg-dashboard/internal/models"
	"github.com/wgdash/wg-dashboard/internal/repo"
)

type UserService struct {
	Repo   *repo.GormRepo
	Events *events.Producer
}

// Profile is the public view of a user, password hash excluded.
type Profile struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func profileOf(u *models.User) *Profile {
	return &Profile{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
}

// Get returns the profile for self or any admin. Everyone else gets
// ErrNotFound so the response does not disclose whether the user exists.
func (s *UserService) Get(ctx context.Context, actor authz.Subject, id uint) (*Profile, error) {
	if err := authz.Authorize(actor, authz.UserRead, id); err != nil {
		return nil, ErrNotFound
	}

	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return profileOf(user), nil
}

func (s *UserService) List(ctx context.Context, actor authz.Subject) ([]Profile, error) {
	if err := authz.Authorize(actor, authz.UserList, 0); err != nil {
		return nil, ErrForbidden
	}

	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, *profileOf(&users[i]))
	}
	return profiles, nil
}

func (s *UserService) Update(ctx context.Context, actor authz.Subject, id uint, username, name, role string) error {
	l := logging.FromContext(ctx).With("svc", "user.update", "target_id", id)

	if err := authz.Authorize(actor, authz.UserUpdate, id); err != nil {
		return ErrNotFound
	}
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if !models.IsValidRole(role) {
		return fmt.Errorf("%w: role %q is not valid", ErrValidation, role)
	}

	target, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := authz.CheckRoleChange(actor, target.Role, role); err != nil {
		l.Warn("role_change_denied", "actor_id", actor.ID, "requested_role", role)
		return ErrForbidden
	}

	if err := s.Repo.UpdateUserProfile(ctx, id, username, name, role); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return fmt.Errorf("%w: username %q", ErrConflict, username)
		case errors.Is(err, repo.ErrNotFound):
			return ErrNotFound
		}
		return err
	}

	l.Info("user_updated", "actor_id", actor.ID)
	return nil
}

// Delete removes the user and cascades to their peers and refresh tokens.
// Outstanding access tokens are left to expire on their own; with the
// credential row and refresh chains gone the subject cannot come back.
func (s *UserService) Delete(ctx context.Context, actor authz.Subject, id uint) error {
	l := logging.FromContext(ctx).With("svc", "user.delete", "target_id", id)

	if err := authz.Authorize(actor, authz.UserDelete, id); err != nil {
		return ErrNotFound
	}

	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	l.Info("user_deleted", "actor_id", actor.ID)
	s.Events.Publish(ctx, events.UserDelete, strconv.FormatUint(uint64(id), 10),
		map[string]any{"user_id": id, "actor_id": actor.ID})
	return nil
}
