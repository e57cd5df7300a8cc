package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/taskmanager/auth-service/internal/events"
	"github.com/taskmanager/auth-service/internal/hash"
	"github.com/taskmanager/auth-service/internal/logging"
	"github.com/taskmanager/auth-service/internal/models"
	"github.com/taskmanager/auth-service/internal/repo"
	"github.com/taskmanager/auth-service/internal/tokens"
)

const DefaultRole = "ROLE_USER"

const publishTimeout = 5 * time.Second

// EventPublisher is satisfied by events.Producer. Publishing is fire
// and forget from the service's point of view.
type EventPublisher interface {
	Publish(ctx context.Context, event events.UserEvent) error
}

type AuthService struct {
	Repo   *repo.GormRepo
	Hasher hash.Hasher
	Signer *tokens.Signer
	Events EventPublisher

	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	LockoutThreshold int
}

type RegisterParams struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// TokenBundle is what every successful authentication returns.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	UserID       uint
	Username     string
	Email        string
	Roles        []string
}

// Register creates the user with the default role and immediately
// issues tokens for it. The user row survives a token-issuance failure,
// a later Login with the same credentials works.
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (*TokenBundle, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := validateRegister(p); err != nil {
		return nil, err
	}

	if taken, err := s.Repo.UsernameExists(ctx, p.Username); err != nil {
		return nil, err
	} else if taken {
		l.Warn("register_failed", "reason", "username_taken")
		return nil, ErrConflict
	}
	if taken, err := s.Repo.EmailExists(ctx, p.Email); err != nil {
		return nil, err
	} else if taken {
		l.Warn("register_failed", "reason", "email_taken")
		return nil, ErrConflict
	}

	role, err := s.Repo.RoleByName(ctx, DefaultRole)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Error("register_failed", "reason", "default_role_missing")
			return nil, ErrRoleMissing
		}
		return nil, err
	}

	digest, err := s.Hasher.Hash(ctx, p.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: digest,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Enabled:      true,
		Roles:        []models.Role{*role},
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		// Another registration won the unique index between the
		// pre-check and the insert.
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register_failed", "reason", "duplicate_at_write")
			return nil, ErrConflict
		}
		return nil, err
	}

	l.Info("register_success", "username", user.Username)
	s.publish(ctx, events.TypeUserRegistered, &user)

	return s.issueTokens(ctx, &user)
}

// Login verifies credentials and mints a fresh token bundle. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenBundle, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := s.Repo.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "reason", "unknown_user")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.AccountLocked {
		l.Warn("login_failed", "reason", "account_locked")
		return nil, ErrLockedAccount
	}
	if !user.Enabled {
		l.Warn("login_failed", "reason", "account_disabled")
		return nil, ErrInvalidCredentials
	}

	if !s.Hasher.Verify(ctx, password, user.PasswordHash) {
		locked, err := s.Repo.RecordLoginFailure(ctx, user.ID, s.LockoutThreshold)
		if err != nil {
			return nil, err
		}
		l.Warn("login_failed", "reason", "bad_password", "locked", locked)
		return nil, ErrInvalidCredentials
	}

	if err := s.Repo.ResetLoginFailures(ctx, user.ID); err != nil {
		return nil, err
	}

	l.Info("login_success")
	s.publish(ctx, events.TypeUserLoggedIn, user)

	return s.issueTokens(ctx, user)
}

// Refresh exchanges a live refresh token for a new access token. The
// refresh token itself is returned unchanged; roles are re-read from
// the store so role changes take effect without a new login.
func (s *AuthService) Refresh(ctx context.Context, refreshValue string) (*TokenBundle, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	token, err := s.Repo.RefreshTokenByValue(ctx, refreshValue)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "reason", "unknown_token")
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !token.Usable(time.Now()) {
		l.Warn("refresh_failed", "reason", "revoked_or_expired")
		return nil, ErrUnauthorized
	}

	user, err := s.Repo.UserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	access, err := s.Signer.Issue(user.Username, user.ID, user.Email, user.RoleNames(), s.AccessTTL)
	if err != nil {
		return nil, err
	}

	return s.bundle(access, token.Token, user), nil
}

// Logout revokes the named refresh token. Revoking twice succeeds,
// an unknown token is ErrUnauthorized.
func (s *AuthService) Logout(ctx context.Context, refreshValue string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	token, err := s.Repo.RefreshTokenByValue(ctx, refreshValue)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("logout_failed", "reason", "unknown_token")
			return ErrUnauthorized
		}
		return err
	}

	if err := s.Repo.RevokeRefreshToken(ctx, refreshValue); err != nil {
		return err
	}

	l.Info("logout_success", "user_id", token.UserID)
	if user, err := s.Repo.UserByID(ctx, token.UserID); err == nil {
		s.publish(ctx, events.TypeUserLoggedOut, user)
	}
	return nil
}

// LogoutAll revokes every refresh token the caller owns. The caller
// identity comes from the transport layer's verified access token,
// never from shared process state.
func (s *AuthService) LogoutAll(ctx context.Context, callerUserID uint) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout_all", "user_id", callerUserID)

	user, err := s.Repo.UserByID(ctx, callerUserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}

	count, err := s.Repo.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return err
	}

	l.Info("logout_all_success", "revoked", count)
	s.publish(ctx, events.TypeUserLoggedOut, user)
	return nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*TokenBundle, error) {
	access, err := s.Signer.Issue(user.Username, user.ID, user.Email, user.RoleNames(), s.AccessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := s.Repo.IssueRefreshToken(ctx, user.ID, s.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return s.bundle(access, refresh.Token, user), nil
}

func (s *AuthService) bundle(access, refresh string, user *models.User) *TokenBundle {
	return &TokenBundle{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Roles:        user.RoleNames(),
	}
}

func (s *AuthService) publish(ctx context.Context, eventType string, user *models.User) {
	if s.Events == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.UserEvent{
		Type:     eventType,
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
	if err := s.Events.Publish(pubCtx, event); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", eventType, "error", err)
	}
}

func validateRegister(p RegisterParams) error {
	switch {
	case len(p.Username) < 3:
		return ErrValidation
	case len(p.Password) < 6:
		return ErrValidation
	case !strings.Contains(p.Email, "@"):
		return ErrValidation
	}
	return nil
}
