package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Day       string
	Time      string
	Date      time.Time // calendar date only, time part is zero
	Category  string
	Amount    decimal.Decimal
}
