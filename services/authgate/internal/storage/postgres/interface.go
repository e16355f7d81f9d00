// internal/storage/postgres/interface.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YaganovValera/storefront-auth/services/authgate/internal/role"
)

var (
	// ErrNotFound — пользователь не найден.
	ErrNotFound = errors.New("postgres: user not found")
	// ErrDuplicate — нарушено ограничение уникальности (email или username).
	ErrDuplicate = errors.New("postgres: user already exists")
	// ErrDuplicateEmail и ErrDuplicateUsername уточняют ErrDuplicate по столбцу.
	ErrDuplicateEmail    = fmt.Errorf("%w: email", ErrDuplicate)
	ErrDuplicateUsername = fmt.Errorf("%w: username", ErrDuplicate)
)

type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	IsActive       bool      `json:"is_active"`
	Role           role.Role `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *User) error
}
