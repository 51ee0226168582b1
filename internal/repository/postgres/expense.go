package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/expensify/internal/apperrors"
	"github.com/nkiryanov/expensify/internal/models"
	"github.com/nkiryanov/expensify/internal/repository"
)

type ExpenseRepo struct {
	DB DBTX
}

const expenseColumns = `id, user_id, created_at, updated_at, day, time, spent_on, category, amount`

const createExpense = `-- name: createExpense
INSERT INTO expenses (id, user_id, day, time, spent_on, category, amount)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + expenseColumns

func (r *ExpenseRepo) CreateExpense(ctx context.Context, userID uuid.UUID, arg repository.ExpenseParams) (models.Expense, error) {
	rows, _ := r.DB.Query(ctx, createExpense, uuid.New(), userID, arg.Day, arg.Time, arg.Date, arg.Category, arg.Amount)
	expense, err := pgx.CollectOneRow(rows, rowToExpense)
	if err != nil {
		return expense, fmt.Errorf("db error: %w", err)
	}

	return expense, nil
}

const listExpenses = `-- name: listExpenses
SELECT ` + expenseColumns + ` FROM expenses
WHERE user_id = $1
ORDER BY spent_on ASC, created_at ASC
`

func (r *ExpenseRepo) ListExpenses(ctx context.Context, userID uuid.UUID) ([]models.Expense, error) {
	rows, _ := r.DB.Query(ctx, listExpenses, userID)
	expenses, err := pgx.CollectRows(rows, rowToExpense)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return expenses, nil
}

const updateExpense = `-- name: updateExpense
UPDATE expenses
SET day = $3, time = $4, spent_on = $5, category = $6, amount = $7, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + expenseColumns

func (r *ExpenseRepo) UpdateExpense(ctx context.Context, userID uuid.UUID, expenseID uuid.UUID, arg repository.ExpenseParams) (models.Expense, error) {
	rows, _ := r.DB.Query(ctx, updateExpense, expenseID, userID, arg.Day, arg.Time, arg.Date, arg.Category, arg.Amount)
	return collectExpense(rows)
}

const deleteExpense = `-- name: deleteExpense
DELETE FROM expenses
WHERE id = $1 AND user_id = $2
RETURNING ` + expenseColumns

func (r *ExpenseRepo) DeleteExpense(ctx context.Context, userID uuid.UUID, expenseID uuid.UUID) (models.Expense, error) {
	rows, _ := r.DB.Query(ctx, deleteExpense, expenseID, userID)
	return collectExpense(rows)
}

func collectExpense(rows pgx.Rows) (models.Expense, error) {
	expense, err := pgx.CollectOneRow(rows, rowToExpense)

	switch {
	case err == nil:
		return expense, nil
	case errors.Is(err, pgx.ErrNoRows):
		return expense, apperrors.ErrExpenseNotFound
	default:
		return expense, fmt.Errorf("db error: %w", err)
	}
}

func rowToExpense(row pgx.CollectableRow) (models.Expense, error) {
	var e models.Expense
	err := row.Scan(&e.ID, &e.UserID, &e.CreatedAt, &e.UpdatedAt, &e.Day, &e.Time, &e.Date, &e.Category, &e.Amount)
	return e, err
}
