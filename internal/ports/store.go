package ports

import (
	"context"
	"time"

	"pocket-survival/internal/models"

	"github.com/shopspring/decimal"
)

// Outbound ports implemented by the storage backends.
type (
	// ExpenseStore keeps the expense records of each owner.
	ExpenseStore interface {
		// List returns every record of owner, in no particular order.
		List(ctx context.Context, owner string) ([]models.Expense, error)
		// Insert validates and persists a record and returns it with its ID.
		Insert(ctx context.Context, owner, item string, amount decimal.Decimal, occurredAt time.Time) (models.Expense, error)
		// Reset deletes all records of owner. Resetting an empty set succeeds.
		Reset(ctx context.Context, owner string) error
	}

	// ProfileStore persists budget profiles. GetProfile returns
	// models.ErrNotFound when the owner has none yet.
	ProfileStore interface {
		GetProfile(ctx context.Context, owner string) (models.Profile, error)
		SaveProfile(ctx context.Context, p models.Profile) error
	}

	// AccountStore keeps users and their sessions.
	AccountStore interface {
		CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
		GetUserByUsername(ctx context.Context, username string) (*models.User, error)
		CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error
		ValidateSession(ctx context.Context, token string) (*models.User, *models.Session, error)
		RenewSession(ctx context.Context, token string, expiresAt time.Time) error
		DeleteSession(ctx context.Context, token string) error
		CleanExpiredSessions(ctx context.Context) (int64, error)
		UserCount(ctx context.Context) (int, error)
	}

	// EventPublisher announces changes to the ledger to other systems.
	EventPublisher interface {
		PublishExpenseLogged(ctx context.Context, e models.Expense) error
		PublishReset(ctx context.Context, owner string) error
	}
)
