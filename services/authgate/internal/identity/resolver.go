// internal/identity/resolver.go

// Package identity превращает access-токен в пользователя.
package identity

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/logger"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/storage/postgres"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/token"
)

var tracer = otel.Tracer("authgate/identity")

// Verifier проверяет подпись и срок токена.
type Verifier interface {
	Verify(raw string) (*token.Claims, error)
}

// UserFinder ищет пользователя по ID.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*postgres.User, error)
}

// Resolver разрешает access-токены в пользователей.
type Resolver struct {
	tokens Verifier
	users  UserFinder
	log    *logger.Logger
}

func NewResolver(tokens Verifier, users UserFinder, log *logger.Logger) *Resolver {
	return &Resolver{tokens: tokens, users: users, log: log.Named("identity")}
}

// ResolveAccess проверяет токен, его тип и subject, затем загружает пользователя.
// Все ошибки — *autherr.Error.
func (r *Resolver) ResolveAccess(ctx context.Context, raw string) (*postgres.User, error) {
	ctx, span := tracer.Start(ctx, "ResolveAccess")
	defer span.End()

	if raw == "" {
		return nil, autherr.New(autherr.TokenMissing)
	}
	claims, err := r.tokens.Verify(raw)
	if err != nil {
		return nil, autherr.Wrap(TokenErrorKind(err), err)
	}
	if claims.Type != token.Access {
		return nil, autherr.New(autherr.WrongTokenType)
	}
	id, err := ParseSubject(claims.Subject)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("user_id", id))

	user, err := r.users.FindByID(ctx, id)
	switch {
	case errors.Is(err, postgres.ErrNotFound):
		return nil, autherr.New(autherr.UserNotFound)
	case err != nil:
		span.RecordError(err)
		r.log.WithContext(ctx).Error("user lookup failed", zap.Int64("user_id", id), zap.Error(err))
		return nil, autherr.Wrap(autherr.Internal, err)
	}
	return user, nil
}

// TokenErrorKind отображает ошибку token.Codec.Verify на Kind.
func TokenErrorKind(err error) autherr.Kind {
	if errors.Is(err, token.ErrTokenExpired) {
		return autherr.TokenExpired
	}
	return autherr.TokenMalformed
}

// ParseSubject разбирает subject как ID пользователя.
// Пустой subject → MissingSubject, нечисловой → TokenMalformed.
func ParseSubject(sub string) (int64, error) {
	if sub == "" {
		return 0, autherr.New(autherr.MissingSubject)
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, autherr.New(autherr.TokenMalformed)
	}
	return id, nil
}
