package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/expensify/internal/apperrors"
)

// Session repo stores the refresh token right on the users row
type SessionRepo struct {
	DB DBTX
}

// Conditional write: row lock makes concurrent swaps with the same expected value
// serialize, the loser re-checks the predicate and matches nothing
const swapRefreshToken = `-- name: swapRefreshToken
UPDATE users
SET refresh_token = NULLIF($3, ''), updated_at = now()
WHERE id = $1 AND COALESCE(refresh_token, '') = $2
`

const userExists = `-- name: userExists
SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)
`

func (r *SessionRepo) Swap(ctx context.Context, userID uuid.UUID, expected string, next string) error {
	tag, err := r.DB.Exec(ctx, swapRefreshToken, userID, expected, next)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing updated: tell missing user apart from lost race
	var exists bool
	if err := r.DB.QueryRow(ctx, userExists, userID).Scan(&exists); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return apperrors.ErrUserNotFound
	}

	return apperrors.ErrSessionConflict
}

const clearRefreshToken = `-- name: clearRefreshToken
UPDATE users
SET refresh_token = NULL, updated_at = now()
WHERE id = $1
`

func (r *SessionRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, clearRefreshToken, userID)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}
