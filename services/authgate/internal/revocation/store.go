// internal/revocation/store.go

// Package revocation хранит единственный действующий refresh-токен на пользователя.
package revocation

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound — записи для пользователя нет (logout или истёк TTL).
	ErrNotFound = errors.New("revocation: record not found")
	// ErrMismatch — сохранённый токен не совпал с предъявленным.
	ErrMismatch = errors.New("revocation: stored token mismatch")
)

// KeyPrefix — префикс ключей записей.
const KeyPrefix = "refresh_token:"

// Key возвращает ключ записи пользователя.
func Key(userID string) string { return KeyPrefix + userID }

// Store — разделяемое хранилище отзыва.
type Store interface {
	// Put перезаписывает запись и выставляет TTL.
	Put(ctx context.Context, userID, token string, ttl time.Duration) error
	// Get возвращает текущий токен или ErrNotFound.
	Get(ctx context.Context, userID string) (string, error)
	// Delete удаляет запись; отсутствие записи не ошибка.
	Delete(ctx context.Context, userID string) error
	// Rotate атомарно заменяет presented на next; иначе ErrMismatch.
	Rotate(ctx context.Context, userID, presented, next string, ttl time.Duration) error
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
}
