// services/authgate/internal/middleware/gate.go
package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/YaganovValera/storefront-auth/common/logger"
	commonmw "github.com/YaganovValera/storefront-auth/common/middleware"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/authctx"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/storage/postgres"
)

// AccessResolver разрешает access-токен в пользователя.
type AccessResolver interface {
	ResolveAccess(ctx context.Context, raw string) (*postgres.User, error)
}

// GateConfig — публичные маршруты шлюза.
type GateConfig struct {
	PublicPaths       []string
	PublicGETPrefixes []string
}

// Gate пропускает дальше только запросы с действующим access-токеном.
type Gate struct {
	resolver AccessResolver
	public   pathSet
	prefixes []string
}

func NewGate(resolver AccessResolver, cfg GateConfig) *Gate {
	return &Gate{
		resolver: resolver,
		public:   newPathSet(cfg.PublicPaths),
		prefixes: cfg.PublicGETPrefixes,
	}
}

func (*Gate) Name() string { return "gate" }

func (g *Gate) isPublic(r *http.Request) bool {
	if r.Method == http.MethodOptions || g.public.has(r.URL.Path) {
		return true
	}
	if r.Method != http.MethodGet {
		return false
	}
	for _, p := range g.prefixes {
		if underPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

func (g *Gate) Admit(r *http.Request) (*http.Request, Finalizer, error) {
	if g.isPublic(r) {
		return r, nil, nil
	}
	ctx := r.Context()

	raw, ok := authctx.FreshAccess(ctx)
	if !ok {
		raw = cookieValue(r, AccessCookie)
	}
	user, err := g.resolver.ResolveAccess(ctx, raw)
	if err != nil {
		return nil, nil, err
	}

	id := strconv.FormatInt(user.ID, 10)
	commonmw.SetUserID(ctx, id)
	ctx = logger.ContextWithUserID(ctx, id)
	if _, ok := authctx.CurrentUserID(ctx); !ok {
		ctx = authctx.WithUserID(ctx, id)
	}
	ctx = authctx.WithUser(ctx, user)
	return r.WithContext(ctx), nil, nil
}
