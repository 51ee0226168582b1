package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/expensify/internal/models"
)

type CreateUserParams struct {
	Username     string
	Email        string
	FullName     string
	Avatar       string
	PasswordHash string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username or email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by it's id
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)

	// Get user whose username equals username or whose email equals email
	// Match by username wins if both match different users
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByLogin(ctx context.Context, username string, email string) (models.User, error)

	// Report whether any user has the username or the email
	ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error)

	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error

	// Has to return apperrors.ErrUserAlreadyExists if email is taken by other user
	UpdateAccount(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error)

	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatar string) (models.User, error)
}

// Session repository keeps the one current refresh token on the user record
// Stored value is read with the user, see models.User.RefreshToken
type SessionRepo interface {
	// Replace the stored token with next only if the stored one still equals expected
	// Empty expected matches a logged out user
	// If the stored token differs must return apperrors.ErrSessionConflict
	Swap(ctx context.Context, userID uuid.UUID, expected string, next string) error

	// Clear the stored token. Must be idempotent
	Clear(ctx context.Context, userID uuid.UUID) error
}

type ExpenseParams struct {
	Day      string
	Time     string
	Date     time.Time // only the calendar date is kept
	Category string
	Amount   decimal.Decimal
}

type ExpenseRepo interface {
	CreateExpense(ctx context.Context, userID uuid.UUID, arg ExpenseParams) (models.Expense, error)

	// List user expenses ordered by date
	ListExpenses(ctx context.Context, userID uuid.UUID) ([]models.Expense, error)

	// Update and delete touch only entries owned by the user
	// If nothing matched must return apperrors.ErrExpenseNotFound
	UpdateExpense(ctx context.Context, userID uuid.UUID, expenseID uuid.UUID, arg ExpenseParams) (models.Expense, error)
	DeleteExpense(ctx context.Context, userID uuid.UUID, expenseID uuid.UUID) (models.Expense, error)
}

type Storage interface {
	User() UserRepo
	Session() SessionRepo
	Expense() ExpenseRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
