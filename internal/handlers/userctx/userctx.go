package userctx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const userKey ctxKey = "user"

// Create a new context with the user id from session
func New(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// Extract the user id from the context
func FromContext(ctx context.Context) (uuid.UUID, bool) {
	u, ok := ctx.Value(userKey).(uuid.UUID)
	return u, ok && u != uuid.Nil
}
