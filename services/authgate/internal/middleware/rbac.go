// services/authgate/internal/middleware/rbac.go
package middleware

import (
	"net/http"

	"github.com/YaganovValera/storefront-auth/services/authgate/internal/authctx"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/response"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/role"
)

// RequireRoles пропускает только пользователей с одной из ролей.
// Без current_user → 401, чужая роль → 403.
func RequireRoles(allowed ...role.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := authctx.CurrentUser(r.Context())
			if !ok {
				response.Error(w, autherr.New(autherr.TokenMissing))
				return
			}
			for _, want := range allowed {
				if user.Role == want {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, autherr.New(autherr.Forbidden))
		})
	}
}
