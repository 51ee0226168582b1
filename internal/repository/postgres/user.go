package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/expensify/internal/apperrors"
	"github.com/nkiryanov/expensify/internal/models"
	"github.com/nkiryanov/expensify/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, created_at, updated_at, user_name, email, full_name, avatar, password_hash, COALESCE(refresh_token, '')`

const createUser = `-- name: CreateUser
INSERT INTO users (id, user_name, email, full_name, avatar, password_hash)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), arg.Username, arg.Email, arg.FullName, arg.Avatar, arg.PasswordHash)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		if isUniqueViolation(err) {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: getUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByLogin = `-- name: getUserByLogin
SELECT ` + userColumns + ` FROM users
WHERE user_name = $1 OR email = $2
ORDER BY user_name = $1 DESC
LIMIT 1
`

func (r *UserRepo) GetUserByLogin(ctx context.Context, username string, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByLogin, username, email)
	return collectUser(rows)
}

const existsByUsernameOrEmail = `-- name: existsByUsernameOrEmail
SELECT EXISTS (SELECT 1 FROM users WHERE user_name = $1 OR email = $2)
`

func (r *UserRepo) ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, existsByUsernameOrEmail, username, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

const updatePassword = `-- name: updatePassword
UPDATE users
SET password_hash = $2, updated_at = now()
WHERE id = $1
`

func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.DB.Exec(ctx, updatePassword, id, passwordHash)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

const updateAccount = `-- name: updateAccount
UPDATE users
SET full_name = $2, email = $3, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdateAccount(ctx context.Context, id uuid.UUID, fullName string, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateAccount, id, fullName, email)
	user, err := collectUser(rows)
	if isUniqueViolation(err) {
		return user, apperrors.ErrUserAlreadyExists
	}
	return user, err
}

const updateAvatar = `-- name: updateAvatar
UPDATE users
SET avatar = $2, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdateAvatar(ctx context.Context, id uuid.UUID, avatar string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateAvatar, id, avatar)
	return collectUser(rows)
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Username, &u.Email, &u.FullName, &u.Avatar, &u.PasswordHash, &u.RefreshToken)
	return u, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
