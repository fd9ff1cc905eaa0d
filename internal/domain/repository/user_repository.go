package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-user-registry/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("repository: user not found")
	ErrDuplicateEmail = errors.New("repository: email already exists")
)

// Store is the root data access interface. Concrete drivers (postgres, sqlite)
// implement it.
type Store interface {
	// Begin opens a session scoped to one request. The caller MUST call
	// Commit or Rollback; Rollback after Commit is a no-op.
	Begin(ctx context.Context) (Session, error)

	// Migrate creates the schema when it is absent.
	Migrate() error

	Ping(ctx context.Context) error
	Close() error
}

// Session is the user gateway bound to a single transaction.
type Session interface {
	ListAll(ctx context.Context) ([]entity.User, error)

	// GetByID returns ErrNotFound when no row has the id.
	GetByID(ctx context.Context, id int64) (*entity.User, error)

	// Add inserts u and sets u.ID. A unique index hit yields ErrDuplicateEmail.
	Add(ctx context.Context, u *entity.User) error

	// Update overwrites every mutable column of the row u.ID.
	Update(ctx context.Context, u *entity.User) error

	EmailExists(ctx context.Context, email string) (bool, error)
	EmailExistsForOtherUser(ctx context.Context, id int64, email string) (bool, error)

	// Commit makes the writes durable and returns how many rows they touched.
	Commit(ctx context.Context) (int64, error)
	Rollback(ctx context.Context) error
}
