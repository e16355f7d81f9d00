// services/authgate/internal/usecase/users.go
package usecase

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"

	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/storage/postgres"
)

type userHandler struct {
	users postgres.UserRepository
}

func NewUserHandler(users postgres.UserRepository) UserHandler {
	return &userHandler{users}
}

func (h *userHandler) Get(ctx context.Context, id int64) (*postgres.User, error) {
	ctx, span := otel.Tracer("authgate/usecase/users").Start(ctx, "GetUser")
	defer span.End()

	user, err := h.users.FindByID(ctx, id)
	switch {
	case errors.Is(err, postgres.ErrNotFound):
		return nil, autherr.New(autherr.UserNotFound)
	case err != nil:
		return nil, autherr.Wrap(autherr.Internal, err)
	}
	return user, nil
}
