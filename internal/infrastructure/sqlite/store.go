package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/oksasatya/go-user-registry/internal/domain/entity"
	"github.com/oksasatya/go-user-registry/internal/domain/repository"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano

	userColumns = `id, name, email, password_hash, birth_date, phone, active, created_at, updated_at`
)

// Store is the SQLite-backed user store. Timestamps are kept as RFC 3339 text
// and birth dates as YYYY-MM-DD text.
type Store struct {
	db *sql.DB
}

// NewStore opens path (a file name or ":memory:").
func NewStore(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Begin(ctx context.Context) (repository.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &session{tx: tx}, nil
}

type session struct {
	tx       *sql.Tx
	affected int64
}

func (r *session) ListAll(ctx context.Context) ([]entity.User, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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
	row := r.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *session) Add(ctx context.Context, u *entity.User) error {
	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, birth_date, phone, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.Name, u.Email, u.PasswordHash, formatDate(u.BirthDate), nullString(u.Phone), u.Active,
		u.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	r.affected++
	return nil
}

func (r *session) Update(ctx context.Context, u *entity.User) error {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE users
		SET name = ?, email = ?, password_hash = ?, birth_date = ?, phone = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, u.Name, u.Email, u.PasswordHash, formatDate(u.BirthDate), nullString(u.Phone), u.Active,
		nullTime(u.UpdatedAt), u.ID)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	r.affected += n
	return nil
}

func (r *session) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)`, email).Scan(&exists)
	return exists, err
}

func (r *session) EmailExistsForOtherUser(ctx context.Context, id int64, email string) (bool, error) {
	var exists bool
	err := r.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = ? AND id <> ?)`, email, id).Scan(&exists)
	return exists, err
}

func (r *session) Commit(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := r.tx.Commit(); err != nil {
		return 0, mapErr(err)
	}
	return r.affected, nil
}

func (r *session) Rollback(context.Context) error {
	err := r.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*entity.User, error) {
	var (
		u                    entity.User
		birthDate, createdAt string
		phone, updatedAt     sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &birthDate, &phone, &u.Active,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if u.BirthDate, err = time.Parse(dateLayout, birthDate); err != nil {
		return nil, fmt.Errorf("user %d: birth_date: %w", u.ID, err)
	}
	if u.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("user %d: created_at: %w", u.ID, err)
	}
	if updatedAt.Valid {
		t, err := time.Parse(timeLayout, updatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("user %d: updated_at: %w", u.ID, err)
		}
		u.UpdatedAt = &t
	}
	u.Phone = phone.String
	return &u, nil
}

func mapErr(err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return repository.ErrDuplicateEmail
	}
	return err
}

func formatDate(t time.Time) string {
	return entity.DateOnly(t).Format(dateLayout)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

var _ repository.Store = (*Store)(nil)
