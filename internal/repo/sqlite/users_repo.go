package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/favfilms/internal/domain/user"
	"github.com/geocoder89/favfilms/internal/observability"
	"github.com/google/uuid"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type UsersRepo struct {
	db   *sql.DB
	prom *observability.Prom
}

func NewUsersRepo(db *sql.DB, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db, prom: prom}
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	u := user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        user.NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	err := r.prom.ObserveDB("users_create", func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?,?,?,?,?)`,
			u.ID, u.Name, u.Email, u.PasswordHash, formatTime(u.CreatedAt),
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	u.CreatedAt, _ = parseTime(formatTime(u.CreatedAt))
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var createdAt string

	err := r.prom.ObserveDB("users_get_by_email", func() error {
		return r.db.QueryRowContext(ctx,
			`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`,
			user.NormalizeEmail(email),
		).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt)
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return false
	}

	code := se.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// primary result code only when extended codes are off
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}
