// internal/storage/postgres/users.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/YaganovValera/storefront-auth/services/authgate/internal/role"
)

var tracer = otel.Tracer("authgate/storage/postgres")

const uniqueViolation = "23505"

// DB — подмножество pgxpool.Pool, используемое репозиторием.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, username, email, hashed_password, is_active, role, created_at`

type userRepo struct {
	db DB
}

func NewUserRepo(db DB) UserRepository {
	return &userRepo{db: db}
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u    User
		rawR string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.IsActive, &rawR, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = role.Role(rawR)
	return &u, nil
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	ctx, span := tracer.Start(ctx, "FindByID", trace.WithAttributes(attribute.Int64("user_id", id)))
	defer span.End()

	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, err
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	ctx, span := tracer.Start(ctx, "FindByEmail")
	defer span.End()

	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, err
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, span := tracer.Start(ctx, "ExistsByEmail")
	defer span.End()

	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("exists by email: %w", err)
	}
	return exists, nil
}

// Create вставляет пользователя и заполняет ID и CreatedAt.
func (r *userRepo) Create(ctx context.Context, user *User) error {
	ctx, span := tracer.Start(ctx, "Create")
	defer span.End()

	err := r.db.QueryRow(ctx,
		`INSERT INTO users (username, email, hashed_password, is_active, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		user.Username, user.Email, user.HashedPassword, user.IsActive, string(user.Role),
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return duplicateOf(pgErr.ConstraintName)
		}
		span.RecordError(err)
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// duplicateOf различает users_email_key и users_username_key.
func duplicateOf(constraint string) error {
	switch {
	case strings.Contains(constraint, "username"):
		return ErrDuplicateUsername
	case strings.Contains(constraint, "email"):
		return ErrDuplicateEmail
	}
	return ErrDuplicate
}
