package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/expensify/internal/apperrors"
	"github.com/nkiryanov/expensify/internal/handlers/render"
	"github.com/nkiryanov/expensify/internal/handlers/userctx"
	"github.com/nkiryanov/expensify/internal/logger"
	"github.com/nkiryanov/expensify/internal/repository"
)

type expenseRequest struct {
	Day      string           `json:"day" validate:"notblank"`
	Time     string           `json:"time" validate:"notblank"`
	Date     string           `json:"date" validate:"date"`
	Category string           `json:"category" validate:"notblank"`
	Amount   *decimal.Decimal `json:"amount" validate:"required"`
}

func (req expenseRequest) params() repository.ExpenseParams {
	// Format is checked by validator already
	date, _ := time.Parse(time.DateOnly, req.Date)
	return repository.ExpenseParams{
		Day:      req.Day,
		Time:     req.Time,
		Date:     date,
		Category: req.Category,
		Amount:   *req.Amount,
	}
}

func handleListExpenses(expenseService expenseService, logger logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := userctx.MustFromContext(r.Context())

		list, err := expenseService.List(r.Context(), u.ID)
		if err != nil {
			logger.Error("can't list expenses", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]expenseResponse, 0, len(list))
		for _, e := range list {
			resp = append(resp, newExpenseResponse(e))
		}
		render.JSON(w, resp, "expenses retrieved successfully")
	}
}

func handleAddExpense(expenseService expenseService, logger logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[expenseRequest](w, r)
		if err != nil {
			return
		}

		u := userctx.MustFromContext(r.Context())

		e, err := expenseService.Create(r.Context(), u.ID, data.params())
		if !renderExpenseError(w, err, logger) {
			render.JSON(w, newExpenseResponse(e), "expense added successfully")
		}
	}
}

func handleUpdateExpense(expenseService expenseService, logger logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := expenseID(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[expenseRequest](w, r)
		if err != nil {
			return
		}

		u := userctx.MustFromContext(r.Context())

		e, err := expenseService.Update(r.Context(), u.ID, id, data.params())
		if !renderExpenseError(w, err, logger) {
			render.JSON(w, newExpenseResponse(e), "expense entry updated successfully")
		}
	}
}

func handleDeleteExpense(expenseService expenseService, logger logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := expenseID(w, r)
		if !ok {
			return
		}

		u := userctx.MustFromContext(r.Context())

		e, err := expenseService.Delete(r.Context(), u.ID, id)
		if !renderExpenseError(w, err, logger) {
			render.JSON(w, newExpenseResponse(e), "expense entry deleted")
		}
	}
}

// Id that is not uuid can't point to any entry
func expenseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.ServiceError(w, "expense entry not found", http.StatusNotFound)
		return id, false
	}
	return id, true
}

// Render err if any and report whether it was rendered
func renderExpenseError(w http.ResponseWriter, err error, logger logger.Logger) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, apperrors.ErrExpenseNotFound):
		render.ServiceError(w, "expense entry not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrNegativeAmount):
		render.FieldErrors(w, "Request validation failed", map[string]string{"amount": "Must not be negative"})
	default:
		logger.Error("expense operation failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
	return true
}
