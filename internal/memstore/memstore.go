// Package memstore keeps everything in process memory. It backs the
// "memory" data backend, tests, and the session-only budget profiles of the
// file and sheets backends.
package memstore

import (
	"context"
	"sync"
	"time"

	"pocket-survival/internal/models"
	"pocket-survival/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	_ ports.ExpenseStore = (*Store)(nil)
	_ ports.ProfileStore = (*Store)(nil)
	_ ports.AccountStore = (*Store)(nil)
)

// Store implements every storage port with maps guarded by one mutex.
type Store struct {
	mu       sync.Mutex
	expenses map[string][]models.Expense
	profiles map[string]models.Profile
	users    map[string]models.User // by username
	sessions map[string]models.Session
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		expenses: make(map[string][]models.Expense),
		profiles: make(map[string]models.Profile),
		users:    make(map[string]models.User),
		sessions: make(map[string]models.Session),
	}
}

// Insert stores the expense and returns it with a fresh ID.
func (s *Store) Insert(_ context.Context, owner, item string, amount decimal.Decimal, occurredAt time.Time) (models.Expense, error) {
	e, err := models.NewExpense(owner, item, amount, occurredAt)
	if err != nil {
		return models.Expense{}, err
	}
	e.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[owner] = append(s.expenses[owner], e)
	return e, nil
}

// List returns a copy of the owner's expenses in insertion order.
func (s *Store) List(_ context.Context, owner string) ([]models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Expense(nil), s.expenses[owner]...), nil
}

// Reset drops every expense of owner.
func (s *Store) Reset(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expenses, owner)
	return nil
}

// GetProfile returns models.ErrNotFound until a profile is saved for owner.
func (s *Store) GetProfile(_ context.Context, owner string) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[owner]
	if !ok {
		return models.Profile{}, models.ErrNotFound
	}
	return p, nil
}

// SaveProfile inserts or replaces the profile of p.Owner.
func (s *Store) SaveProfile(_ context.Context, p models.Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Owner] = p
	return nil
}

// CreateUser adds a user, failing with models.ErrUserExists on a taken name.
func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return nil, models.ErrUserExists
	}
	u := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[username] = u
	return &u, nil
}

// GetUserByUsername looks up a user by name.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

// CreateSession stores a session token for userID.
func (s *Store) CreateSession(_ context.Context, token, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = models.Session{
		Token:        token,
		UserID:       userID,
		ExpiresAt:    expiresAt,
		LastActivity: time.Now(),
	}
	return nil
}

// ValidateSession returns the session and its user if the token exists and
// has not expired.
func (s *Store) ValidateSession(_ context.Context, token string) (*models.User, *models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || !sess.ExpiresAt.After(time.Now()) {
		return nil, nil, models.ErrNotFound
	}
	for _, u := range s.users {
		if u.ID == sess.UserID {
			return &u, &sess, nil
		}
	}
	return nil, nil, models.ErrNotFound
}

// RenewSession moves the expiry of an existing session.
func (s *Store) RenewSession(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return models.ErrNotFound
	}
	sess.ExpiresAt = expiresAt
	sess.LastActivity = time.Now()
	s.sessions[token] = sess
	return nil
}

// DeleteSession removes the token. Unknown tokens are ignored.
func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// CleanExpiredSessions deletes expired sessions and reports how many went.
func (s *Store) CleanExpiredSessions(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var n int64
	for token, sess := range s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

// UserCount returns the number of registered users.
func (s *Store) UserCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}
