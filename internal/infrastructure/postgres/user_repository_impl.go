package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-user-registry/internal/domain/entity"
	"github.com/oksasatya/go-user-registry/internal/domain/repository"
)

const userColumns = `id, name, email, password_hash, birth_date, phone, active, created_at, updated_at`

// Store is the Postgres-backed user store.
type Store struct {
	pool *pgxpool.Pool
	dsn  string
}

func NewStore(pool *pgxpool.Pool, dsn string) *Store {
	return &Store{pool: pool, dsn: dsn}
}

func (s *Store) Begin(ctx context.Context) (repository.Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &session{tx: tx}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type session struct {
	tx       pgx.Tx
	affected int64
}

func (r *session) ListAll(ctx context.Context) ([]entity.User, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []entity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *session) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *session) Add(ctx context.Context, u *entity.User) error {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, birth_date, phone, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, u.Name, u.Email, u.PasswordHash, entity.DateOnly(u.BirthDate), nullable(u.Phone), u.Active, u.CreatedAt)

	var createdAt time.Time
	if err := row.Scan(&u.ID, &createdAt); err != nil {
		return mapErr(err)
	}
	u.CreatedAt = createdAt.UTC()
	r.affected++
	return nil
}

func (r *session) Update(ctx context.Context, u *entity.User) error {
	res, err := r.tx.Exec(ctx, `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, birth_date = $4, phone = $5, active = $6, updated_at = $7
		WHERE id = $8
	`, u.Name, u.Email, u.PasswordHash, entity.DateOnly(u.BirthDate), nullable(u.Phone), u.Active, u.UpdatedAt, u.ID)
	if err != nil {
		return mapErr(err)
	}
	r.affected += res.RowsAffected()
	return nil
}

func (r *session) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func (r *session) EmailExistsForOtherUser(ctx context.Context, id int64, email string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, id).Scan(&exists)
	return exists, err
}

func (r *session) Commit(ctx context.Context) (int64, error) {
	if err := r.tx.Commit(ctx); err != nil {
		return 0, mapErr(err)
	}
	return r.affected, nil
}

func (r *session) Rollback(ctx context.Context) error {
	err := r.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		u         entity.User
		phone     *string
		updatedAt *time.Time
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.BirthDate, &phone, &u.Active,
		&u.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	if phone != nil {
		u.Phone = *phone
	}
	u.BirthDate = entity.DateOnly(u.BirthDate)
	u.CreatedAt = u.CreatedAt.UTC()
	if updatedAt != nil {
		t := updatedAt.UTC()
		u.UpdatedAt = &t
	}
	return &u, nil
}

func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return repository.ErrDuplicateEmail
	}
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ repository.Store = (*Store)(nil)
