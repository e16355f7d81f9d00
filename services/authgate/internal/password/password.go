// internal/password/password.go

// Package password хеширует и проверяет пароли (bcrypt) и задаёт политику сложности.
package password

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt учитывает только первые 72 байта.
const maxBytes = 72

// MinLength — минимальная длина пароля.
const MinLength = 8

// ErrWeak — пароль не прошёл политику сложности.
var ErrWeak = errors.New("password: too weak")

func truncate(plain string) []byte {
	b := []byte(plain)
	if len(b) > maxBytes {
		b = b[:maxBytes]
	}
	return b
}

// Hasher хеширует пароли с заданной стоимостью.
type Hasher struct {
	cost int
}

// NewHasher создаёт Hasher; cost вне допустимого диапазона → bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash возвращает bcrypt-хеш.
func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncate(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(hash), nil
}

// Verify сравнивает пароль с хешем.
func (h *Hasher) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(plain)) == nil
}

// Validate проверяет длину и наличие цифры, заглавной буквы и знака пунктуации.
func Validate(plain string) error {
	if len(plain) < MinLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeak, MinLength)
	}
	var digit, upper, punct bool
	for _, r := range plain {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			punct = true
		}
	}
	switch {
	case !digit:
		return fmt.Errorf("%w: must contain a digit", ErrWeak)
	case !upper:
		return fmt.Errorf("%w: must contain an uppercase letter", ErrWeak)
	case !punct:
		return fmt.Errorf("%w: must contain a special character", ErrWeak)
	}
	return nil
}
