package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachable points at a port nothing listens on.
func unreachable(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), Config{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

func TestRedisStore_ExpiredTokenIsNotWritten(t *testing.T) {
	s := unreachable(t)
	s.now = func() time.Time { return time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC) }

	err := s.Revoke(context.Background(), "jti-1", time.Date(2030, 1, 1, 11, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
}

func TestRedisStore_ErrorsAreWrapped(t *testing.T) {
	s := unreachable(t)
	ctx := context.Background()

	err := s.Revoke(ctx, "jti-1", time.Now().Add(time.Minute))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revoke token")

	_, err = s.IsRevoked(ctx, "jti-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revocation check")

	assert.Error(t, s.Ping(ctx))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "revoked:abc", key("abc"))
}

func TestNoop(t *testing.T) {
	var r Revoker = Noop{}
	ctx := context.Background()

	assert.NoError(t, r.Revoke(ctx, "x", time.Now().Add(time.Hour)))
	revoked, err := r.IsRevoked(ctx, "x")
	assert.NoError(t, err)
	assert.False(t, revoked)
	assert.NoError(t, r.Ping(ctx))

	var _ Revoker = (*RedisStore)(nil)
}
