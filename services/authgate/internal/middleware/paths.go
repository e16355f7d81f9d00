// services/authgate/internal/middleware/paths.go
package middleware

import "strings"

var (
	// DefaultRotationExclude — пути, где ротация не выполняется.
	DefaultRotationExclude = []string{
		"/auth/login", "/auth/register", "/openapi.json", "/docs", "/redoc",
		"/auth/logout", "/", "/product/", "/product/search",
	}
	// DefaultPublicPaths — пути, доступные без аутентификации.
	DefaultPublicPaths = []string{
		"/auth/login", "/auth/register", "/openapi.json", "/docs", "/redoc",
		"/", "/product/", "/product/search",
	}
	// DefaultPublicGETPrefixes — префиксы, открытые для GET.
	DefaultPublicGETPrefixes = []string{"/product"}
)

// normalizePath убирает завершающие слэши; корень остаётся "/".
func normalizePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

type pathSet map[string]struct{}

func newPathSet(paths []string) pathSet {
	s := make(pathSet, len(paths))
	for _, p := range paths {
		s[normalizePath(p)] = struct{}{}
	}
	return s
}

func (s pathSet) has(path string) bool {
	_, ok := s[normalizePath(path)]
	return ok
}

// underPrefix: path совпадает с prefix или лежит под ним по границе сегмента,
// так что "/product" открывает "/product/42", но не "/products".
func underPrefix(path, prefix string) bool {
	prefix = normalizePath(prefix)
	if prefix == "/" {
		return true
	}
	return normalizePath(path) == prefix || strings.HasPrefix(path, prefix+"/")
}
