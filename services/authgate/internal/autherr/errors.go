// internal/autherr/errors.go

// Package autherr задаёт таксономию ошибок аутентификации и их единственное
// отображение на HTTP-статусы.
package autherr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind классифицирует отказ.
type Kind string

const (
	TokenMissing       Kind = "token_missing"
	TokenMalformed     Kind = "token_malformed"
	TokenExpired       Kind = "token_expired"
	WrongTokenType     Kind = "wrong_token_type"
	MissingSubject     Kind = "missing_subject"
	UserNotFound       Kind = "user_not_found"
	RefreshInvalid     Kind = "refresh_invalid"
	RefreshRevoked     Kind = "refresh_revoked"
	StoreUnavailable   Kind = "store_unavailable"
	Forbidden          Kind = "forbidden"
	InvalidInput       Kind = "invalid_input"
	Conflict           Kind = "conflict"
	InvalidCredentials Kind = "invalid_credentials"
	Internal           Kind = "internal"
)

var statuses = map[Kind]int{
	TokenMissing:       http.StatusUnauthorized,
	TokenMalformed:     http.StatusUnauthorized,
	TokenExpired:       http.StatusUnauthorized,
	WrongTokenType:     http.StatusUnauthorized,
	MissingSubject:     http.StatusBadRequest,
	UserNotFound:       http.StatusNotFound,
	RefreshInvalid:     http.StatusUnauthorized,
	RefreshRevoked:     http.StatusUnauthorized,
	StoreUnavailable:   http.StatusUnauthorized,
	Forbidden:          http.StatusForbidden,
	InvalidInput:       http.StatusBadRequest,
	Conflict:           http.StatusBadRequest,
	InvalidCredentials: http.StatusUnauthorized,
	Internal:           http.StatusInternalServerError,
}

var details = map[Kind]string{
	TokenMissing:       "Not authenticated",
	TokenMalformed:     "Invalid token",
	TokenExpired:       "Token expired",
	WrongTokenType:     "Invalid token type",
	MissingSubject:     "Invalid token payload",
	UserNotFound:       "User not found",
	RefreshInvalid:     "Invalid refresh token",
	RefreshRevoked:     "Refresh token revoked",
	StoreUnavailable:   "Cannot verify session",
	Forbidden:          "Insufficient permissions",
	InvalidInput:       "Invalid request",
	Conflict:           "Email already registered",
	InvalidCredentials: "Invalid credentials",
	Internal:           "Internal server error",
}

// Status возвращает HTTP-статус для Kind; неизвестный Kind → 500.
func Status(k Kind) int {
	if s, ok := statuses[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Detail возвращает текст по умолчанию для Kind.
func Detail(k Kind) string {
	if d, ok := details[k]; ok {
		return d
	}
	return details[Internal]
}

// Error — отказ с классификацией. Err хранит причину для логов и
// никогда не попадает в тело ответа.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = Detail(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Public возвращает текст, безопасный для клиента.
func (e *Error) Public() string {
	if e.Message != "" {
		return e.Message
	}
	return Detail(e.Kind)
}

// New создаёт ошибку с текстом по умолчанию.
func New(k Kind) *Error { return &Error{Kind: k} }

// Wrap создаёт ошибку с причиной.
func Wrap(k Kind, err error) *Error { return &Error{Kind: k, Err: err} }

// Newf создаёт ошибку Kind с собственным текстом для клиента.
func Newf(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// Invalid создаёт ошибку валидации с пользовательским текстом.
func Invalid(format string, args ...interface{}) *Error {
	return &Error{Kind: InvalidInput, Message: fmt.Sprintf(format, args...)}
}

// KindOf извлекает Kind из цепочки; не-autherr ошибки считаются Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is сообщает, что err несёт указанный Kind.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
