// common/ctxkeys/keys.go

// Package ctxkeys содержит общие ключи контекста для логирования и трассировки.
package ctxkeys

type contextKey string

const (
	TraceIDKey   contextKey = "trace_id"
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
)
