package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wgdash/wg-dashboard/internal/authz"
	"github.com/wgdash/wg-dashboard/internal/events"
	"github.com/wgdash/wg-dashboard/internal/hash"
	"github.com/wgdash/wg-dashboard/internal/logging"
	"github.com/wgdash/wg-dashboard/internal/models"
	"github.com/wgdash/wg-dashboard/internal/repo"
	"github.com/wgdash/wg-dashboard/internal/tokens"
)

// AuthService owns signup, login, refresh rotation, logout and password
// changes.
type AuthService struct {
	Repo       *repo.GormRepo
	Issuer     *tokens.Issuer
	RefreshTTL time.Duration
	Events     *events.Producer
}

type LoginResult struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
	User         *models.User
}

func (s *AuthService) Signup(ctx context.Context, username, password, name string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("signup_failed", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: pwHash,
		Name:         name,
		Role:         models.RoleUser,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("signup_conflict", "username", username)
			return nil, fmt.Errorf("%w: username %q", ErrConflict, username)
		}
		l.Error("signup_failed", "error", err)
		return nil, err
	}

	s.Events.Publish(ctx, events.UserSignup, username, map[string]any{"user_id": user.ID})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "reason", "unknown username")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "reason", "password mismatch")
		return nil, ErrInvalidCredentials
	}

	res, err := s.issuePair(ctx, user, uuid.NewString())
	if err != nil {
		l.Error("login_failed", "error", err)
		return nil, err
	}

	l.Info("login_successful", "user_id", user.ID)
	s.Events.Publish(ctx, events.UserLogin, username, map[string]any{"user_id": user.ID})
	return res, nil
}

// Refresh redeems the presented refresh token and rotates it. The ledger
// guarantees at most one successful redemption per token; an already-spent
// token kills its whole chain.
func (s *AuthService) Refresh(ctx context.Context, refreshValue string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshValue == "" {
		return nil, ErrInvalidRefresh
	}

	successorValue, err := tokens.NewRefreshValue()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	successor := &models.RefreshToken{
		TokenHash: tokens.Sha256Hex(successorValue),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.RefreshTTL).Unix(),
	}

	redeemed, err := s.Repo.RotateRefreshToken(ctx, tokens.Sha256Hex(refreshValue), successor)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrTokenReused):
			l.Warn("refresh_reuse_detected", "reason", "chain revoked")
			s.Events.Publish(ctx, events.TokenReuseDetect, "", nil)
			return nil, ErrInvalidRefresh
		case errors.Is(err, repo.ErrNotFound), errors.Is(err, repo.ErrTokenExpired):
			l.Warn("refresh_failed", "error", err)
			return nil, ErrInvalidRefresh
		}
		l.Error("refresh_failed", "error", err)
		return nil, err
	}

	user, err := s.Repo.GetUserByID(ctx, redeemed.UserID)
	if err != nil {
		// Owner no longer exists: the chain is dead.
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	accessToken, accessExp, err := s.Issuer.IssueAccess(user)
	if err != nil {
		return nil, err
	}

	l.Info("refresh_successful", "user_id", user.ID)
	s.Events.Publish(ctx, events.TokenRefresh, user.Username, map[string]any{"user_id": user.ID})
	return &LoginResult{
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: successorValue,
		RefreshExp:   time.Unix(successor.ExpiresAt, 0),
		User:         user,
	}, nil
}

// Logout revokes the presented refresh token and everything descending
// from it. Access tokens stay valid until natural expiry.
func (s *AuthService) Logout(ctx context.Context, refreshValue string) error {
	if refreshValue == "" {
		return ErrInvalidRefresh
	}
	err := s.Repo.RevokeRefreshChain(ctx, tokens.Sha256Hex(refreshValue))
	if errors.Is(err, repo.ErrNotFound) {
		return ErrInvalidRefresh
	}
	return err
}

func (s *AuthService) ChangePassword(ctx context.Context, actor authz.Subject, targetID uint, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.passwd", "target_id", targetID)

	if err := authz.Authorize(actor, authz.UserPassword, targetID); err != nil {
		// Hide the target's existence from callers who may not touch it.
		l.Warn("passwd_denied", "actor_id", actor.ID)
		return ErrNotFound
	}
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdateUserPassword(ctx, targetID, pwHash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	l.Info("passwd_changed", "actor_id", actor.ID)
	s.Events.Publish(ctx, events.PasswordChange, strconv.FormatUint(uint64(targetID), 10),
		map[string]any{"user_id": targetID})
	return nil
}

// EnsureAdmin creates the initial admin account when no admin exists.
// Keeps the instance reachable after every admin was deleted or locked out.
func (s *AuthService) EnsureAdmin(ctx context.Context, create bool, username, password, name string) error {
	l := logging.FromContext(ctx).With("svc", "auth.bootstrap")

	exists, err := s.Repo.AdminExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if !create {
		l.Warn("no_admin_account", "reason", "bootstrap disabled by config")
		return nil
	}
	if password == "" {
		l.Warn("no_admin_account", "reason", "INITIAL_ADMIN_PASSWORD not set")
		return nil
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.User{
		Username:     username,
		PasswordHash: pwHash,
		Name:         name,
		Role:         models.RoleAdmin,
	}
	if err := s.Repo.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("admin_bootstrap_skipped", "reason", "username already taken", "username", username)
			return nil
		}
		return err
	}

	l.Info("admin_bootstrap_done", "username", username)
	return nil
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User, chainID string) (*LoginResult, error) {
	accessToken, accessExp, err := s.Issuer.IssueAccess(user)
	if err != nil {
		return nil, err
	}

	refreshValue, err := tokens.NewRefreshValue()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	refreshExp := now.Add(s.RefreshTTL)
	err = s.Repo.InsertRefreshToken(ctx, &models.RefreshToken{
		TokenHash: tokens.Sha256Hex(refreshValue),
		UserID:    user.ID,
		ChainID:   chainID,
		IssuedAt:  now.Unix(),
		ExpiresAt: refreshExp.Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshValue,
		RefreshExp:   refreshExp,
		User:         user,
	}, nil
}
