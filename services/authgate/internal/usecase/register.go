// services/authgate/internal/usecase/register.go
package usecase

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/logger"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/events"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/metrics"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/password"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/role"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/storage/postgres"
)

// Пределы совпадают с VARCHAR(64) и VARCHAR(255) таблицы users.
const (
	maxUsernameLength = 64
	maxEmailLength    = 255
)

type registerHandler struct {
	users  postgres.UserRepository
	hasher PasswordHasher
	events events.Publisher
	log    *logger.Logger
}

func NewRegisterHandler(users postgres.UserRepository, hasher PasswordHasher, pub events.Publisher, log *logger.Logger) RegisterHandler {
	return &registerHandler{users, hasher, pub, log.Named("register")}
}

func validateEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || utf8.RuneCountInString(raw) > maxEmailLength ||
		!strings.Contains(raw[strings.LastIndex(raw, "@")+1:], ".") {
		return "", autherr.Invalid("invalid email address")
	}
	return strings.ToLower(raw), nil
}

func (h *registerHandler) Handle(ctx context.Context, in RegisterInput) (*postgres.User, error) {
	ctx, span := otel.Tracer("authgate/usecase/register").Start(ctx, "Register")
	defer span.End()

	username := strings.TrimSpace(in.Username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		return nil, autherr.Invalid("username must be between 1 and %d characters", maxUsernameLength)
	}
	email, err := validateEmail(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, err
	}
	if err := password.Validate(in.Password); err != nil {
		return nil, autherr.Invalid("password %s", strings.TrimPrefix(err.Error(), password.ErrWeak.Error()+": "))
	}
	r, err := role.Parse(in.Role)
	if err != nil {
		return nil, autherr.Invalid("role must be one of user, admin, sale, hr")
	}

	exists, err := h.users.ExistsByEmail(ctx, email)
	if err != nil {
		h.log.WithContext(ctx).Error("check email failed", zap.Error(err))
		return nil, autherr.Wrap(autherr.Internal, err)
	}
	if exists {
		return nil, autherr.New(autherr.Conflict)
	}

	hash, err := h.hasher.Hash(in.Password)
	if err != nil {
		h.log.WithContext(ctx).Error("hash password failed", zap.Error(err))
		return nil, autherr.Wrap(autherr.Internal, err)
	}

	user := &postgres.User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		IsActive:       true,
		Role:           r,
	}
	if err := h.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, postgres.ErrDuplicateUsername):
			return nil, autherr.Newf(autherr.Conflict, "Username already taken")
		case errors.Is(err, postgres.ErrDuplicate):
			return nil, autherr.New(autherr.Conflict)
		}
		h.log.WithContext(ctx).Error("create user failed", zap.Error(err))
		return nil, autherr.Wrap(autherr.Internal, err)
	}

	metrics.Registrations.Inc()
	h.log.WithContext(ctx).Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(r)))
	events.Emit(ctx, h.events, events.Register, user.ID)
	return user, nil
}
