package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	userColumns = `id, email, password_hash, first_name, last_name, is_admin, created_at, updated_at`

	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	insertUserQuery = `
		INSERT INTO users (email, password_hash, first_name, last_name, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	updateUserQuery = `
		UPDATE users
		SET first_name = COALESCE(NULLIF($1, ''), first_name),
			last_name = COALESCE(NULLIF($2, ''), last_name),
			password_hash = COALESCE(NULLIF($3, ''), password_hash),
			updated_at = now()
		WHERE id = $4
		RETURNING ` + userColumns
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, getUserByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, getUserByEmailQuery, email))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	created, err := scanUser(r.db.QueryRowContext(ctx, insertUserQuery,
		user.Email, user.Password, user.FirstName, user.LastName, user.IsAdmin))
	if err != nil {
		// unique violation on users_email_key
		if strings.Contains(err.Error(), "users_email_key") {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return created, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int, userUpdate User) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, updateUserQuery,
		userUpdate.FirstName, userUpdate.LastName, userUpdate.Password, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func scanUser(scanner rowScanner) (User, error) {
	var (
		u         User
		createdAt time.Time
		updatedAt time.Time
	)
	if err := scanner.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.IsAdmin, &createdAt, &updatedAt); err != nil {
		return User{}, err
	}
	u.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	u.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return u, nil
}
