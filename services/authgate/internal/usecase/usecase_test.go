package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/storefront-auth/common/logger"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/events"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/password"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/role"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/storage/postgres"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/token"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/usecase"
)

type memUsers struct {
	mu     sync.Mutex
	byID   map[int64]*postgres.User
	nextID int64
	err    error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[int64]*postgres.User{}} }

func (m *memUsers) FindByID(_ context.Context, id int64) (*postgres.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, postgres.ErrNotFound
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*postgres.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (m *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	if errors.Is(err, postgres.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memUsers) Create(_ context.Context, u *postgres.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		switch {
		case other.Email == u.Email:
			return postgres.ErrDuplicateEmail
		case other.Username == u.Username:
			return postgres.ErrDuplicateUsername
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	m.byID[u.ID] = u
	return nil
}

type memSessions struct {
	data map[string]string
	err  error
}

func (m *memSessions) Put(_ context.Context, userID, tok string, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[userID] = tok
	return nil
}

func (m *memSessions) Delete(_ context.Context, userID string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.data, userID)
	return nil
}

type recorder struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
	return nil
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.got))
	for i, ev := range r.got {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	users    *memUsers
	sessions *memSessions
	codec    *token.Codec
	events   *recorder
	h        usecase.Handler
}

var ttl = usecase.TTL{Access: 30 * time.Minute, Refresh: 7 * 24 * time.Hour}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := token.NewCodec("secret", "HS256")
	require.NoError(t, err)
	f := &fixture{
		users:    newMemUsers(),
		sessions: &memSessions{data: map[string]string{}},
		codec:    codec,
		events:   &recorder{},
	}
	hasher := password.NewHasher(4)
	log := logger.NewNop()
	f.h = usecase.NewHandler(
		usecase.NewLoginHandler(f.users, f.sessions, codec, hasher, f.events, ttl, log),
		usecase.NewRegisterHandler(f.users, hasher, f.events, log),
		usecase.NewLogoutHandler(f.sessions, f.events),
		usecase.NewUserHandler(f.users),
	)
	return f
}

func validInput() usecase.RegisterInput {
	return usecase.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "Secr3t!pass", Role: "admin"}
}

func TestRegisterLoginLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.h.Register.Handle(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, role.Admin, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "Secr3t!pass", user.HashedPassword)

	sess, err := f.h.Login.Handle(ctx, usecase.LoginInput{Email: "alice@example.com", Password: "Secr3t!pass"})
	require.NoError(t, err)
	assert.Equal(t, ttl, sess.TTL)
	assert.Equal(t, sess.RefreshToken, f.sessions.data["1"])

	claims, err := f.codec.Verify(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, token.Access, claims.Type)
	claims, err = f.codec.Verify(sess.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, token.Refresh, claims.Type)

	got, err := f.h.Users.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, f.h.Logout.Handle(ctx, 1))
	assert.NotContains(t, f.sessions.data, "1")

	assert.Equal(t, []events.Type{events.Register, events.Login, events.Logout}, f.events.types())
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]func(*usecase.RegisterInput){
		"empty username": func(in *usecase.RegisterInput) { in.Username = "  " },
		"long username":  func(in *usecase.RegisterInput) { in.Username = strings.Repeat("a", 65) },
		"long email":     func(in *usecase.RegisterInput) { in.Email = strings.Repeat("a", 250) + "@example.com" },
		"bad email":      func(in *usecase.RegisterInput) { in.Email = "not-an-email" },
		"no domain dot":  func(in *usecase.RegisterInput) { in.Email = "a@localhost" },
		"short password": func(in *usecase.RegisterInput) { in.Password = "Ab1!" },
		"no digit":       func(in *usecase.RegisterInput) { in.Password = "Secret!pass" },
		"no upper":       func(in *usecase.RegisterInput) { in.Password = "secr3t!pass" },
		"no punctuation": func(in *usecase.RegisterInput) { in.Password = "Secr3tpass" },
		"unknown role":   func(in *usecase.RegisterInput) { in.Role = "root" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := f.h.Register.Handle(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, autherr.InvalidInput, autherr.KindOf(err))
		})
	}
}

func TestRegister_DefaultRoleAndDuplicate(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Role = ""
	user, err := f.h.Register.Handle(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, role.User, user.Role)

	_, err = f.h.Register.Handle(context.Background(), validInput())
	assert.Equal(t, autherr.Conflict, autherr.KindOf(err))
	var ae *autherr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Email already registered", ae.Public())
}

func TestRegister_UsernameLimits(t *testing.T) {
	f := newFixture(t)

	// 64 символа, в том числе многобайтовые, ещё помещаются в VARCHAR(64)
	in := validInput()
	in.Username = strings.Repeat("я", 64)
	user, err := f.h.Register.Handle(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in.Username, user.Username)

	in.Email = "other@example.com"
	_, err = f.h.Register.Handle(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, autherr.Conflict, autherr.KindOf(err))
	var ae *autherr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Username already taken", ae.Public())

	in.Username = strings.Repeat("я", 65)
	in.Email = "third@example.com"
	_, err = f.h.Register.Handle(context.Background(), in)
	assert.Equal(t, autherr.InvalidInput, autherr.KindOf(err))
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Register.Handle(context.Background(), validInput())
	require.NoError(t, err)

	cases := []struct {
		name string
		in   usecase.LoginInput
		want autherr.Kind
	}{
		{"missing fields", usecase.LoginInput{}, autherr.InvalidInput},
		{"unknown email", usecase.LoginInput{Email: "bob@example.com", Password: "x"}, autherr.UserNotFound},
		{"wrong password", usecase.LoginInput{Email: "alice@example.com", Password: "Wrong1!pass"}, autherr.InvalidCredentials},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.h.Login.Handle(context.Background(), c.in)
			assert.Equal(t, c.want, autherr.KindOf(err))
		})
	}
	assert.Empty(t, f.sessions.data)
}

func TestLogin_StoreDown(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Register.Handle(context.Background(), validInput())
	require.NoError(t, err)
	f.sessions.err = errors.New("redis down")

	_, err = f.h.Login.Handle(context.Background(), usecase.LoginInput{Email: "alice@example.com", Password: "Secr3t!pass"})
	assert.Equal(t, autherr.Internal, autherr.KindOf(err))
}

func TestUsers_Get(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Users.Get(context.Background(), 7)
	assert.Equal(t, autherr.UserNotFound, autherr.KindOf(err))

	f.users.err = errors.New("db down")
	_, err = f.h.Users.Get(context.Background(), 7)
	assert.Equal(t, autherr.Internal, autherr.KindOf(err))
}
