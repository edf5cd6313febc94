package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"article-api/internal/domain"
	"article-api/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name TEXT NULL,
	age REAL NULL
);
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (string, error) {
	id := uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, email, password_hash, name, age)
VALUES (?, ?, ?, ?, ?)`,
		id,
		user.Email,
		user.PasswordHash,
		nullString(user.Name),
		nullFloat(user.Age),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("insert user: %w", repository.ErrDuplicateEmail)
		}
		return "", fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, email, password_hash, name, age
FROM users
WHERE email = ?`,
		email,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, email, password_hash, name, age
FROM users
WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, name *string, age *float64) (*domain.User, error) {
	var (
		sets []string
		args []any
	)
	if name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *name)
	}
	if age != nil {
		sets = append(sets, "age = ?")
		args = append(args, *age)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user domain.User
		name sql.NullString
		age  sql.NullFloat64
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&name,
		&age,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.Name = name.String
	if age.Valid {
		v := age.Float64
		user.Age = &v
	}
	return &user, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
