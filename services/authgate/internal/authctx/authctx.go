// internal/authctx/authctx.go

// Package authctx хранит идентичность запроса в context.Context.
package authctx

import (
	"context"

	"github.com/YaganovValera/storefront-auth/services/authgate/internal/storage/postgres"
)

type ctxKey string

const (
	currentUserIDKey ctxKey = "current_user_id"
	currentUserKey   ctxKey = "current_user"
	freshAccessKey   ctxKey = "fresh_access_token"
)

// WithUserID выставляет сырой subject (до разрешения пользователя).
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, currentUserIDKey, id)
}

// CurrentUserID возвращает subject, выставленный ротацией или шлюзом.
func CurrentUserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(currentUserIDKey).(string)
	return id, ok && id != ""
}

// WithUser выставляет разрешённого пользователя.
func WithUser(ctx context.Context, u *postgres.User) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// CurrentUser возвращает пользователя, разрешённого шлюзом.
func CurrentUser(ctx context.Context) (*postgres.User, bool) {
	u, ok := ctx.Value(currentUserKey).(*postgres.User)
	return u, ok && u != nil
}

// WithFreshAccess передаёт шлюзу access-токен, выпущенный в этом же запросе.
func WithFreshAccess(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, freshAccessKey, token)
}

// FreshAccess возвращает access-токен, выпущенный ротацией в этом запросе.
func FreshAccess(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(freshAccessKey).(string)
	return t, ok && t != ""
}
