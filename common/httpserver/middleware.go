// common/httpserver/middleware.go

package httpserver

import (
	"net/http"
	"runtime/debug"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/logger"
)

// RecoverMiddleware перехватывает паники и возвращает 500.
func RecoverMiddleware(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rcv := recover(); rcv != nil {
					if rcv == http.ErrAbortHandler {
						panic(rcv)
					}
					log.WithContext(r.Context()).Error("panic recovered",
						zap.Any("panic", rcv),
						zap.ByteString("stack", debug.Stack()),
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware возвращает CORS по конфигу; без origins — permissive.
func CORSMiddleware(cfg CORSConfig) Middleware {
	if len(cfg.AllowedOrigins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-New-Access-Token", "X-Request-ID"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
