// common/middleware/logger.go

package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/logger"
)

type holderKey struct{}

// userIDHolder позволяет внутренним обработчикам сообщить user_id внешнему логгеру.
type userIDHolder struct {
	mu sync.Mutex
	id string
}

// SetUserID сообщает RequestLogger идентификатор пользователя текущего запроса.
// Без RequestLogger в цепочке вызов ничего не делает.
func SetUserID(ctx context.Context, id string) {
	if h, ok := ctx.Value(holderKey{}).(*userIDHolder); ok {
		h.mu.Lock()
		h.id = id
		h.mu.Unlock()
	}
}

// RequestLogger логирует входящие HTTP-запросы с контекстом.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	log = log.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrapWriter(w)
			holder := &userIDHolder{}
			r = r.WithContext(context.WithValue(r.Context(), holderKey{}, holder))

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
			}
			holder.mu.Lock()
			if holder.id != "" {
				fields = append(fields, zap.String("user_id", holder.id))
			}
			holder.mu.Unlock()

			entry := log.WithContext(r.Context())
			switch {
			case ww.status >= 500:
				entry.Error("HTTP request", fields...)
			case ww.status >= 400:
				entry.Warn("HTTP request", fields...)
			default:
				entry.Info("HTTP request", fields...)
			}
		})
	}
}
