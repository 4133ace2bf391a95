package auth

import (
	"context"

	"github.com/listenupapp/booklist-server/internal/domain"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const currentUserKey ctxKey = "currentUser"

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}

// UserFromContext returns the authenticated user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(currentUserKey).(*domain.User)
	return user
}
