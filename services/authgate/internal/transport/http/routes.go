// services/authgate/internal/transport/http/routes.go
package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/YaganovValera/storefront-auth/services/authgate/internal/middleware"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/role"
)

// Routes монтирует auth-маршруты за пайплайном аутентификации.
// lookupRoles открывают GET /auth/users/{id}; без них — admin и hr.
func Routes(h *Handler, pipeline *middleware.Pipeline, lookupRoles ...role.Role) http.Handler {
	if len(lookupRoles) == 0 {
		lookupRoles = []role.Role{role.Admin, role.HR}
	}
	r := chi.NewRouter()
	r.Use(pipeline.Wrap)
	r.NotFound(h.NotFound)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)

		r.With(middleware.RequireRoles(lookupRoles...)).Get("/users/{id}", h.GetUser)
	})

	return r
}

var knownPaths = map[string]struct{}{
	"/auth/login": {}, "/auth/register": {}, "/auth/logout": {}, "/auth/me": {},
	"/metrics": {}, "/healthz": {}, "/readyz": {},
}

// PathLabel сводит путь запроса к шаблону маршрута для метрик.
func PathLabel(r *http.Request) string {
	p := r.URL.Path
	if _, ok := knownPaths[p]; ok {
		return p
	}
	if strings.HasPrefix(p, "/auth/users/") {
		return "/auth/users/{id}"
	}
	return "other"
}
