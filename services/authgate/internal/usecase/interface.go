// services/authgate/internal/usecase/interface.go
package usecase

import (
	"context"
	"time"

	"github.com/YaganovValera/storefront-auth/services/authgate/internal/storage/postgres"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/token"
)

// TokenIssuer выпускает подписанные токены.
type TokenIssuer interface {
	Issue(subject string, typ token.Type, ttl time.Duration) (string, error)
}

// PasswordHasher — односторонняя функция с проверкой.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// SessionStore — запись действующего refresh-токена пользователя.
type SessionStore interface {
	Put(ctx context.Context, userID, token string, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}

// TTL — время жизни токенов.
type TTL struct {
	Access  time.Duration
	Refresh time.Duration
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Session — результат входа: пара токенов и их TTL для cookies.
type Session struct {
	User         *postgres.User
	AccessToken  string
	RefreshToken string
	TTL          TTL
}

type LoginHandler interface {
	Handle(ctx context.Context, in LoginInput) (*Session, error)
}

type RegisterHandler interface {
	Handle(ctx context.Context, in RegisterInput) (*postgres.User, error)
}

type LogoutHandler interface {
	Handle(ctx context.Context, userID int64) error
}

type UserHandler interface {
	Get(ctx context.Context, id int64) (*postgres.User, error)
}
