package identity_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/storefront-auth/common/logger"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/identity"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/storage/postgres"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/token"
)

type fakeUsers struct {
	users map[int64]*postgres.User
	err   error
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*postgres.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return u, nil
}

type fixture struct {
	now      time.Time
	codec    *token.Codec
	users    *fakeUsers
	resolver *identity.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Unix(1_700_000_000, 0)}
	codec, err := token.NewCodec("secret", "HS256", token.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.codec = codec
	f.users = &fakeUsers{users: map[int64]*postgres.User{
		1: {ID: 1, Username: "alice"},
		2: {ID: 2, Username: "bob"},
	}}
	f.resolver = identity.NewResolver(codec, f.users, logger.NewNop())
	return f
}

func (f *fixture) issue(t *testing.T, sub string, typ token.Type, ttl time.Duration) string {
	t.Helper()
	raw, err := f.codec.Issue(sub, typ, ttl)
	require.NoError(t, err)
	return raw
}

func TestResolveAccess_RoundTrip(t *testing.T) {
	f := newFixture(t)
	for _, id := range []int64{1, 2} {
		u, err := f.resolver.ResolveAccess(context.Background(), f.issue(t, strconv.FormatInt(id, 10), token.Access, 30*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
	}
}

func TestResolveAccess_Failures(t *testing.T) {
	f := newFixture(t)
	expired := f.issue(t, "1", token.Access, time.Minute)

	cases := []struct {
		name  string
		raw   func() string
		setup func()
		want  autherr.Kind
	}{
		{"missing", func() string { return "" }, nil, autherr.TokenMissing},
		{"malformed", func() string { return "garbage" }, nil, autherr.TokenMalformed},
		{"expired", func() string { return expired }, func() { f.now = f.now.Add(2 * time.Minute) }, autherr.TokenExpired},
		{"refresh as access", func() string { return f.issue(t, "1", token.Refresh, time.Hour) }, nil, autherr.WrongTokenType},
		{"no subject", func() string { return f.issue(t, "", token.Access, time.Hour) }, nil, autherr.MissingSubject},
		{"non numeric subject", func() string { return f.issue(t, "abc", token.Access, time.Hour) }, nil, autherr.TokenMalformed},
		{"deleted user", func() string { return f.issue(t, "99", token.Access, time.Hour) }, nil, autherr.UserNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			raw := c.raw()
			if c.setup != nil {
				c.setup()
			}
			_, err := f.resolver.ResolveAccess(context.Background(), raw)
			require.Error(t, err)
			assert.Equal(t, c.want, autherr.KindOf(err))
		})
	}
}

func TestResolveAccess_LookupFailure(t *testing.T) {
	f := newFixture(t)
	f.users.err = errors.New("connection refused")

	_, err := f.resolver.ResolveAccess(context.Background(), f.issue(t, "1", token.Access, time.Hour))
	assert.Equal(t, autherr.Internal, autherr.KindOf(err))
}

func TestParseSubject(t *testing.T) {
	id, err := identity.ParseSubject("17")
	require.NoError(t, err)
	assert.Equal(t, int64(17), id)

	_, err = identity.ParseSubject("")
	assert.Equal(t, autherr.MissingSubject, autherr.KindOf(err))
	_, err = identity.ParseSubject("-3")
	assert.Equal(t, autherr.TokenMalformed, autherr.KindOf(err))
}
