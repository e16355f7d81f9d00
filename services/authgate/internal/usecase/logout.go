// services/authgate/internal/usecase/logout.go
package usecase

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"

	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/events"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/metrics"
)

var logoutTracer = otel.Tracer("authgate/usecase/logout")

type logoutHandler struct {
	sessions SessionStore
	events   events.Publisher
}

func NewLogoutHandler(sessions SessionStore, pub events.Publisher) LogoutHandler {
	return &logoutHandler{sessions, pub}
}

func (h *logoutHandler) Handle(ctx context.Context, userID int64) error {
	ctx, span := logoutTracer.Start(ctx, "Logout")
	defer span.End()

	if err := h.sessions.Delete(ctx, strconv.FormatInt(userID, 10)); err != nil {
		return autherr.Wrap(autherr.Internal, err)
	}
	metrics.Logouts.Inc()
	events.Emit(ctx, h.events, events.Logout, userID)
	return nil
}
