package handlers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/expensify/internal/models"
)

// User as clients see it, never carries password hash or refresh token
type userResponse struct {
	ID        uuid.UUID `json:"_id"`
	Username  string    `json:"userName"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func newTokensResponse(pair models.TokenPair) tokensResponse {
	return tokensResponse{AccessToken: pair.Access.Value, RefreshToken: pair.Refresh.Value}
}

type expenseResponse struct {
	ID        uuid.UUID   `json:"_id"`
	UserID    uuid.UUID   `json:"user"`
	Day       string      `json:"day"`
	Time      string      `json:"time"`
	Date      string      `json:"date"`
	Category  string      `json:"category"`
	Amount    json.Number `json:"amount"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func newExpenseResponse(e models.Expense) expenseResponse {
	return expenseResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		Day:       e.Day,
		Time:      e.Time,
		Date:      e.Date.Format(time.DateOnly),
		Category:  e.Category,
		Amount:    json.Number(e.Amount.StringFixed(2)),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// Used for responses that carry nothing, renders as {}
type empty struct{}
