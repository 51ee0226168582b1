package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/expensify/internal/apperrors"
	"github.com/nkiryanov/expensify/internal/handlers/render"
	"github.com/nkiryanov/expensify/internal/handlers/userctx"
	"github.com/nkiryanov/expensify/internal/models"
)

type authService interface {
	GetAccessString(r *http.Request) string
	Authenticate(ctx context.Context, access string) (models.User, error)
}

type errorLogger interface {
	Error(msg string, args ...any)
}

// Gate: only requests with valid access token of existing user pass
// The user without secrets is put to request context
func AuthMiddleware(as authService, l errorLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Authenticate(r.Context(), as.GetAccessString(r))
			switch {
			case errors.Is(err, apperrors.ErrNoToken):
				render.ServiceError(w, "no token", http.StatusUnauthorized)
				return
			case errors.Is(err, apperrors.ErrTokenInvalid):
				render.ServiceError(w, "invalid access token", http.StatusUnauthorized)
				return
			case err != nil:
				l.Error("can't authenticate request", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
