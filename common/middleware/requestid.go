// common/middleware/requestid.go

package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/YaganovValera/storefront-auth/common/logger"
)

// RequestIDHeader — заголовок корреляции запросов.
const RequestIDHeader = "X-Request-ID"

// RequestID берёт X-Request-ID из запроса или генерирует новый UUID.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" || len(reqID) > 128 {
				reqID = uuid.NewString()
			}
			ctx := logger.ContextWithRequestID(r.Context(), reqID)
			w.Header().Set(RequestIDHeader, reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TraceContext принимает входящий W3C traceparent: спаны запроса становятся
// его потомками, а trace_id попадает в логи.
func TraceContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
				ctx = logger.ContextWithTraceID(ctx, sc.TraceID().String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
