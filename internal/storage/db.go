package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pocket-survival/internal/models"
	"pocket-survival/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

var (
	_ ports.ExpenseStore = (*DB)(nil)
	_ ports.ProfileStore = (*DB)(nil)
	_ ports.AccountStore = (*DB)(nil)
)

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite has a single writer anyway, and an in-memory
	// database only exists on the connection that created it.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Insert stores a new expense for owner.
func (db *DB) Insert(ctx context.Context, owner, item string, amount decimal.Decimal, occurredAt time.Time) (models.Expense, error) {
	e, err := models.NewExpense(owner, item, amount, occurredAt)
	if err != nil {
		return models.Expense{}, err
	}
	e.ID = uuid.NewString()

	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO expenses (id, owner, item, amount, occurred_at) VALUES (?, ?, ?, ?, ?)",
		e.ID, e.Owner, e.Item, e.Amount.String(), e.OccurredAt,
	)
	if err != nil {
		return models.Expense{}, models.WrapStorage("insert expense", err)
	}
	return e, nil
}

// List returns all expenses of owner, newest first.
func (db *DB) List(ctx context.Context, owner string) ([]models.Expense, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, owner, item, amount, occurred_at FROM expenses WHERE owner = ? ORDER BY occurred_at DESC",
		owner,
	)
	if err != nil {
		return nil, models.WrapStorage("list expenses", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.Owner, &e.Item, &e.Amount, &e.OccurredAt); err != nil {
			return nil, models.WrapStorage("scan expense", err)
		}
		expenses = append(expenses, e)
	}

	return expenses, models.WrapStorage("list expenses", rows.Err())
}

// Reset deletes every expense of owner.
func (db *DB) Reset(ctx context.Context, owner string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM expenses WHERE owner = ?", owner)
	return models.WrapStorage("reset expenses", err)
}

// GetProfile returns the budget profile of owner or models.ErrNotFound.
func (db *DB) GetProfile(ctx context.Context, owner string) (models.Profile, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT owner, ceiling, initial_ceiling, updated_at FROM budget_profiles WHERE owner = ?",
		owner,
	)

	var p models.Profile
	if err := row.Scan(&p.Owner, &p.Ceiling, &p.InitialCeiling, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Profile{}, models.ErrNotFound
		}
		return models.Profile{}, models.WrapStorage("get profile", err)
	}
	return p, nil
}

// SaveProfile inserts or replaces the profile of p.Owner.
func (db *DB) SaveProfile(ctx context.Context, p models.Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO budget_profiles (owner, ceiling, initial_ceiling, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET
			ceiling = excluded.ceiling,
			initial_ceiling = excluded.initial_ceiling,
			updated_at = excluded.updated_at
	`, p.Owner, p.Ceiling.String(), p.InitialCeiling.String(), p.UpdatedAt.UTC())
	return models.WrapStorage("save profile", err)
}

// CreateUser creates a new user with the given username and password hash.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Username, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if existing, lookupErr := db.GetUserByUsername(ctx, username); lookupErr == nil && existing != nil {
			return nil, models.ErrUserExists
		}
		return nil, models.WrapStorage("create user", err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		username,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, models.WrapStorage("get user", err)
	}
	return &u, nil
}

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt.UTC(), time.Now().UTC(),
	)
	return models.WrapStorage("create session", err)
}

// ValidateSession checks that a session token is live and returns its user.
func (db *DB) ValidateSession(ctx context.Context, token string) (*models.User, *models.Session, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.password_hash, u.created_at, s.expires_at, s.last_activity
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, time.Now().UTC())

	var u models.User
	s := models.Session{Token: token}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &s.ExpiresAt, &s.LastActivity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, models.ErrNotFound
		}
		return nil, nil, models.WrapStorage("validate session", err)
	}
	s.UserID = u.ID
	return &u, &s, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		time.Now().UTC(), expiresAt.UTC(), token,
	)
	return models.WrapStorage("renew session", err)
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return models.WrapStorage("delete session", err)
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return 0, models.WrapStorage("clean sessions", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, models.WrapStorage("count users", err)
}
