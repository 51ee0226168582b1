// Package userctx carries the authenticated user through request context
package userctx

import (
	"context"

	"github.com/nkiryanov/expensify/internal/models"
)

type ctxKey struct{}

// Create a new context with the user, the user is expected to be sanitized
func New(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// Extract the user from the context
func FromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(models.User)
	return u, ok
}

// User put by the auth gate. Panics if handler is mounted without the gate
func MustFromContext(ctx context.Context) models.User {
	u, ok := FromContext(ctx)
	if !ok {
		panic("userctx: no authenticated user in context, route is not behind auth gate")
	}
	return u
}
