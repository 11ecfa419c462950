package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"pocket-survival/internal/models"
	"pocket-survival/internal/ports"
)

const (
	// SessionDuration is how long sessions last (30 days).
	SessionDuration = 30 * 24 * time.Hour
	// MinPasswordLength applies to sign-up only.
	MinPasswordLength = 8
)

// Gateway implements sign-in, sign-up and sign-out over an AccountStore.
type Gateway struct {
	accounts ports.AccountStore
	now      func() time.Time
}

// NewGateway creates a Gateway backed by accounts.
func NewGateway(accounts ports.AccountStore) *Gateway {
	return &Gateway{accounts: accounts, now: time.Now}
}

// SignUp registers a new user.
func (g *Gateway) SignUp(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &models.ValidationError{Field: "username", Reason: "username is required"}
	}
	if len(password) < MinPasswordLength {
		return nil, &models.ValidationError{Field: "password", Reason: "password must be at least 8 characters", Err: models.ErrInvalidCredentials}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := g.accounts.CreateUser(ctx, username, hash)
	if errors.Is(err, models.ErrUserExists) {
		return nil, &models.AuthError{Reason: "that username is already taken", Err: err}
	}
	return user, err
}

// SignIn checks the credentials and opens a new session.
func (g *Gateway) SignIn(ctx context.Context, username, password string) (*models.User, *models.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, &models.AuthError{Reason: "username and password are required", Err: models.ErrInvalidCredentials}
	}

	user, err := g.accounts.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, nil, err
	}
	if user == nil || !CheckPassword(password, user.PasswordHash) {
		return nil, nil, &models.AuthError{Reason: "invalid username or password", Err: models.ErrInvalidCredentials}
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return nil, nil, err
	}
	now := g.now()
	session := &models.Session{
		Token:        token,
		UserID:       user.ID,
		ExpiresAt:    now.Add(SessionDuration),
		LastActivity: now,
	}
	if err := g.accounts.CreateSession(ctx, token, user.ID, session.ExpiresAt); err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// SignOut ends the session. Unknown tokens are ignored.
func (g *Gateway) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return g.accounts.DeleteSession(ctx, token)
}

// Authenticate resolves a session token to its user. A session past the
// halfway point of its lifetime is renewed; renewed reports whether that
// happened so the caller can refresh the cookie.
func (g *Gateway) Authenticate(ctx context.Context, token string) (user *models.User, session *models.Session, renewed bool, err error) {
	if token == "" {
		return nil, nil, false, &models.AuthError{Reason: "not signed in", Err: models.ErrNotFound}
	}
	user, session, err = g.accounts.ValidateSession(ctx, token)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, false, &models.AuthError{Reason: "session expired", Err: err}
	}
	if err != nil {
		return nil, nil, false, err
	}

	now := g.now()
	if session.ExpiresAt.Sub(now) < SessionDuration/2 {
		newExpiresAt := now.Add(SessionDuration)
		// If renewal fails, just continue with the current session
		if err := g.accounts.RenewSession(ctx, token, newExpiresAt); err == nil {
			session.ExpiresAt = newExpiresAt
			session.LastActivity = now
			renewed = true
		}
	}
	return user, session, renewed, nil
}

// EnsureAdmin creates the named account when no users exist yet.
func (g *Gateway) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	count, err := g.accounts.UserCount(ctx)
	if err != nil || count > 0 {
		return false, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	if _, err := g.accounts.CreateUser(ctx, username, hash); err != nil {
		return false, err
	}
	return true, nil
}
