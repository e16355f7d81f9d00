// services/authgate/internal/usecase/login.go
package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/logger"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/events"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/metrics"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/storage/postgres"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/token"
)

var loginTracer = otel.Tracer("authgate/usecase/login")

type loginHandler struct {
	users    postgres.UserRepository
	sessions SessionStore
	tokens   TokenIssuer
	hasher   PasswordHasher
	events   events.Publisher
	ttl      TTL
	log      *logger.Logger
}

func NewLoginHandler(users postgres.UserRepository, sessions SessionStore, tokens TokenIssuer, hasher PasswordHasher, pub events.Publisher, ttl TTL, log *logger.Logger) LoginHandler {
	return &loginHandler{users, sessions, tokens, hasher, pub, ttl, log.Named("login")}
}

func (h *loginHandler) Handle(ctx context.Context, in LoginInput) (*Session, error) {
	ctx, span := loginTracer.Start(ctx, "Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		metrics.Logins.WithLabelValues("invalid").Inc()
		return nil, autherr.Invalid("email and password are required")
	}

	user, err := h.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, postgres.ErrNotFound):
		metrics.Logins.WithLabelValues("user_not_found").Inc()
		h.log.WithContext(ctx).Warn("login failed: unknown email")
		return nil, autherr.New(autherr.UserNotFound)
	case err != nil:
		metrics.Logins.WithLabelValues("error").Inc()
		h.log.WithContext(ctx).Error("find user failed", zap.Error(err))
		return nil, autherr.Wrap(autherr.Internal, err)
	}

	hashCh := make(chan bool, 1)
	go func() { hashCh <- h.hasher.Verify(user.HashedPassword, in.Password) }()
	select {
	case ok := <-hashCh:
		if !ok {
			metrics.Logins.WithLabelValues("invalid_credentials").Inc()
			h.log.WithContext(ctx).Warn("invalid password", zap.Int64("user_id", user.ID))
			return nil, autherr.New(autherr.InvalidCredentials)
		}
	case <-ctx.Done():
		return nil, autherr.Wrap(autherr.Internal, ctx.Err())
	}

	sub := strconv.FormatInt(user.ID, 10)
	access, err := h.tokens.Issue(sub, token.Access, h.ttl.Access)
	if err != nil {
		return nil, autherr.Wrap(autherr.Internal, err)
	}
	refresh, err := h.tokens.Issue(sub, token.Refresh, h.ttl.Refresh)
	if err != nil {
		return nil, autherr.Wrap(autherr.Internal, err)
	}

	if err := h.sessions.Put(ctx, sub, refresh, h.ttl.Refresh); err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, autherr.Wrap(autherr.Internal, err)
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	metrics.IssuedTokens.WithLabelValues(string(token.Access)).Inc()
	metrics.IssuedTokens.WithLabelValues(string(token.Refresh)).Inc()
	h.log.WithContext(ctx).Info("user logged in", zap.Int64("user_id", user.ID))
	events.Emit(ctx, h.events, events.Login, user.ID)

	return &Session{User: user, AccessToken: access, RefreshToken: refresh, TTL: h.ttl}, nil
}
