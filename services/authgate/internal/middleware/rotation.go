// services/authgate/internal/middleware/rotation.go
package middleware

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/logger"
	commonmw "github.com/YaganovValera/storefront-auth/common/middleware"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/authctx"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/events"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/identity"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/metrics"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/revocation"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/token"
)

// TokenCodec — выпуск и проверка токенов.
type TokenCodec interface {
	Issue(subject string, typ token.Type, ttl time.Duration) (string, error)
	Verify(raw string) (*token.Claims, error)
}

// RotationConfig — параметры стадии ротации.
type RotationConfig struct {
	Exclude    []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Cookies    CookieConfig
}

// Rotation продлевает сессию по refresh-токену, когда access-токен недействителен.
type Rotation struct {
	codec   TokenCodec
	store   revocation.Store
	events  events.Publisher
	cfg     RotationConfig
	exclude pathSet
	log     *logger.Logger
}

func NewRotation(codec TokenCodec, store revocation.Store, pub events.Publisher, cfg RotationConfig, log *logger.Logger) *Rotation {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Rotation{
		codec:   codec,
		store:   store,
		events:  pub,
		cfg:     cfg,
		exclude: newPathSet(cfg.Exclude),
		log:     log.Named("rotation"),
	}
}

func (*Rotation) Name() string { return "rotation" }

func (rt *Rotation) Admit(r *http.Request) (*http.Request, Finalizer, error) {
	if r.Method == http.MethodOptions || rt.exclude.has(r.URL.Path) {
		return r, nil, nil
	}
	ctx := r.Context()

	if access := cookieValue(r, AccessCookie); access != "" {
		claims, err := rt.codec.Verify(access)
		if err == nil && claims.Type == token.Access && claims.Subject != "" {
			commonmw.SetUserID(ctx, claims.Subject)
			return r.WithContext(authctx.WithUserID(ctx, claims.Subject)), nil, nil
		}
	}

	presented := cookieValue(r, RefreshCookie)
	if presented == "" {
		return r, nil, nil
	}

	claims, err := rt.codec.Verify(presented)
	if err != nil {
		return nil, nil, rt.fail(autherr.Wrap(autherr.RefreshInvalid, err))
	}
	if claims.Type != token.Refresh || claims.Subject == "" {
		return nil, nil, rt.fail(autherr.New(autherr.RefreshInvalid))
	}
	sub := claims.Subject

	stored, err := rt.store.Get(ctx, sub)
	switch {
	case errors.Is(err, revocation.ErrNotFound):
		return nil, nil, rt.fail(autherr.New(autherr.RefreshRevoked))
	case err != nil:
		return nil, nil, rt.fail(autherr.Wrap(autherr.StoreUnavailable, err))
	case stored != presented:
		return nil, nil, rt.fail(autherr.New(autherr.RefreshRevoked))
	}

	access, err := rt.codec.Issue(sub, token.Access, rt.cfg.AccessTTL)
	if err != nil {
		return nil, nil, rt.fail(autherr.Wrap(autherr.Internal, err))
	}
	refresh, err := rt.codec.Issue(sub, token.Refresh, rt.cfg.RefreshTTL)
	if err != nil {
		return nil, nil, rt.fail(autherr.Wrap(autherr.Internal, err))
	}

	err = rt.store.Rotate(ctx, sub, presented, refresh, rt.cfg.RefreshTTL)
	switch {
	case errors.Is(err, revocation.ErrMismatch):
		return nil, nil, rt.fail(autherr.New(autherr.RefreshRevoked))
	case err != nil:
		return nil, nil, rt.fail(autherr.Wrap(autherr.StoreUnavailable, err))
	}

	metrics.Rotations.WithLabelValues("ok").Inc()
	metrics.IssuedTokens.WithLabelValues(string(token.Access)).Inc()
	metrics.IssuedTokens.WithLabelValues(string(token.Refresh)).Inc()
	rt.log.WithContext(ctx).Info("refresh token rotated", zap.String("user_id", sub))
	if id, err := identity.ParseSubject(sub); err == nil {
		events.Emit(ctx, rt.events, events.Rotate, id)
	}

	commonmw.SetUserID(ctx, sub)
	ctx = authctx.WithUserID(ctx, sub)
	ctx = authctx.WithFreshAccess(ctx, access)

	fin := func(w http.ResponseWriter) {
		rt.cfg.Cookies.SetTokens(w, access, refresh, rt.cfg.AccessTTL, rt.cfg.RefreshTTL)
		w.Header().Set(NewAccessHeader, access)
	}
	return r.WithContext(ctx), fin, nil
}

func (rt *Rotation) fail(err *autherr.Error) error {
	metrics.Rotations.WithLabelValues(string(err.Kind)).Inc()
	return err
}
