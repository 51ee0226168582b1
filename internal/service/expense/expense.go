package expense

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/expensify/internal/apperrors"
	"github.com/nkiryanov/expensify/internal/models"
	"github.com/nkiryanov/expensify/internal/repository"
)

type ExpenseService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *ExpenseService {
	return &ExpenseService{storage: storage}
}

func (s *ExpenseService) Create(ctx context.Context, userID uuid.UUID, params repository.ExpenseParams) (models.Expense, error) {
	params, err := normalize(params)
	if err != nil {
		return models.Expense{}, err
	}

	e, err := s.storage.Expense().CreateExpense(ctx, userID, params)
	if err != nil {
		return e, fmt.Errorf("can't create expense. Err: %w", err)
	}
	return e, nil
}

// List user expenses, never nil
func (s *ExpenseService) List(ctx context.Context, userID uuid.UUID) ([]models.Expense, error) {
	list, err := s.storage.Expense().ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("can't list expenses. Err: %w", err)
	}
	if list == nil {
		list = []models.Expense{}
	}
	return list, nil
}

// Update the entry, apperrors.ErrExpenseNotFound if user has no such entry
func (s *ExpenseService) Update(ctx context.Context, userID uuid.UUID, expenseID uuid.UUID, params repository.ExpenseParams) (models.Expense, error) {
	params, err := normalize(params)
	if err != nil {
		return models.Expense{}, err
	}

	return s.storage.Expense().UpdateExpense(ctx, userID, expenseID, params)
}

// Delete the entry, apperrors.ErrExpenseNotFound if user has no such entry
func (s *ExpenseService) Delete(ctx context.Context, userID uuid.UUID, expenseID uuid.UUID) (models.Expense, error) {
	return s.storage.Expense().DeleteExpense(ctx, userID, expenseID)
}

func normalize(p repository.ExpenseParams) (repository.ExpenseParams, error) {
	if p.Amount.IsNegative() {
		return p, apperrors.ErrNegativeAmount
	}

	p.Day = strings.TrimSpace(p.Day)
	p.Time = strings.TrimSpace(p.Time)
	p.Category = strings.TrimSpace(p.Category)
	p.Amount = p.Amount.Round(2)

	// Only the calendar date is meaningful
	y, m, d := p.Date.Date()
	p.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	return p, nil
}
