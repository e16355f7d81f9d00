package revocation_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/storefront-auth/common/backoff"
	"github.com/YaganovValera/storefront-auth/common/logger"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/revocation"
)

func newStore(t *testing.T) (*revocation.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	bo := backoff.Config{InitialInterval: time.Millisecond, MaxElapsedTime: 20 * time.Millisecond}
	return revocation.NewRedisStore(client, bo, logger.NewNop()), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "refresh_token:42", revocation.Key("42"))
}

func TestPutGetDelete(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "1")
	require.ErrorIs(t, err, revocation.ErrNotFound)

	require.NoError(t, store.Put(ctx, "1", "refresh-a", 7*24*time.Hour))
	got, err := store.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "refresh-a", got)
	assert.Equal(t, 7*24*time.Hour, mr.TTL("refresh_token:1"))

	require.NoError(t, store.Put(ctx, "1", "refresh-b", time.Hour))
	got, err = store.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "refresh-b", got)

	require.NoError(t, store.Delete(ctx, "1"))
	_, err = store.Get(ctx, "1")
	require.ErrorIs(t, err, revocation.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "1"))
}

func TestPut_Expires(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "9", "tok", time.Minute))
	mr.FastForward(time.Minute + time.Second)
	_, err := store.Get(ctx, "9")
	require.ErrorIs(t, err, revocation.ErrNotFound)
}

func TestRotate(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "5", "old", time.Hour))

	require.NoError(t, store.Rotate(ctx, "5", "old", "new", 2*time.Hour))
	got, err := store.Get(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "new", got)
	assert.Equal(t, 2*time.Hour, mr.TTL("refresh_token:5"))

	// replay of the consumed token
	require.ErrorIs(t, store.Rotate(ctx, "5", "old", "other", time.Hour), revocation.ErrMismatch)
	got, _ = store.Get(ctx, "5")
	assert.Equal(t, "new", got)

	// no record at all
	require.ErrorIs(t, store.Rotate(ctx, "6", "old", "new", time.Hour), revocation.ErrMismatch)
	_, err = store.Get(ctx, "6")
	require.ErrorIs(t, err, revocation.ErrNotFound)
}

func TestRotate_ConcurrentSingleWinner(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "7", "shared", time.Hour))

	const workers = 16
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		losers  atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := store.Rotate(ctx, "7", "shared", fmt.Sprintf("next-%d", i), time.Hour)
			switch err {
			case nil:
				winners.Add(1)
			case revocation.ErrMismatch:
				losers.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, winners.Load())
	assert.EqualValues(t, workers-1, losers.Load())
}

func TestStoreUnavailable(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	mr.Close()

	_, err := store.Get(ctx, "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, revocation.ErrNotFound)

	require.Error(t, store.Put(ctx, "1", "x", time.Hour))
	require.Error(t, store.Delete(ctx, "1"))
	err = store.Rotate(ctx, "1", "a", "b", time.Hour)
	require.Error(t, err)
	assert.NotErrorIs(t, err, revocation.ErrMismatch)
	require.Error(t, store.Ping(ctx))
}
