package rediscache

import (
	"context"
	"crypto/tls"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/storefront/cache"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T, prefix string) (*miniredis.Miniredis, *Manager) {
	t.Helper()
	mr := miniredis.RunT(t)

	config := DefaultConfig()
	config.URL = "redis://" + mr.Addr() + "/0"
	config.KeyPrefix = prefix
	config.HealthCheckInterval = 0

	manager, err := NewManager(config, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	return mr, manager
}

func TestNewManager(t *testing.T) {
	_, manager := setupTestRedis(t, "sf:")

	assert.NotNil(t, manager.client)
	assert.True(t, manager.Healthy())
}

func TestNewManager_RequiresURL(t *testing.T) {
	_, err := NewManager(DefaultConfig(), zap.NewNop())
	assert.Error(t, err)

	config := DefaultConfig()
	config.URL = "http://not-redis"
	_, err = NewManager(config, zap.NewNop())
	assert.Error(t, err)
}

func TestNewManager_UnreachableIsNotFatal(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	config := DefaultConfig()
	config.URL = "redis://" + addr
	config.DialTimeout = 100 * time.Millisecond
	config.MaxRetries = -1
	config.HealthCheckInterval = 0

	manager, err := NewManager(config, zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()

	assert.False(t, manager.Healthy())
	_, err = manager.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, cache.IsCacheMiss(err))
}

func TestManager_SetExAndGet(t *testing.T) {
	mr, manager := setupTestRedis(t, "sf:")
	ctx := context.Background()

	require.NoError(t, manager.SetEx(ctx, "product:1", []byte(`{"id":"1"}`), time.Minute))

	got, err := manager.Get(ctx, "product:1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, string(got))

	raw, err := mr.Get("sf:product:1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, raw)
	assert.Equal(t, time.Minute, mr.TTL("sf:product:1"))
}

func TestManager_GetMiss(t *testing.T) {
	_, manager := setupTestRedis(t, "sf:")

	_, err := manager.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestManager_Expiry(t *testing.T) {
	mr, manager := setupTestRedis(t, "")
	ctx := context.Background()

	require.NoError(t, manager.SetEx(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := manager.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestManager_SetExNonPositiveTTLDeletes(t *testing.T) {
	mr, manager := setupTestRedis(t, "sf:")
	ctx := context.Background()

	require.NoError(t, manager.SetEx(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, manager.SetEx(ctx, "k", []byte("v2"), 0))

	assert.False(t, mr.Exists("sf:k"))
}

func TestManager_Del(t *testing.T) {
	_, manager := setupTestRedis(t, "sf:")
	ctx := context.Background()

	require.NoError(t, manager.SetEx(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, manager.SetEx(ctx, "b", []byte("2"), time.Minute))

	n, err := manager.Del(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = manager.Del(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestManager_KeysStripsPrefix(t *testing.T) {
	mr, manager := setupTestRedis(t, "sf:")
	ctx := context.Background()

	for _, k := range []string{"product:1", "product:2", "categories"} {
		require.NoError(t, manager.SetEx(ctx, k, []byte("x"), time.Minute))
	}
	require.NoError(t, mr.Set("other:product:3", "x"))

	keys, err := manager.Keys(ctx, "product:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"product:1", "product:2"}, keys)
}

func TestManager_ClearIsPrefixScoped(t *testing.T) {
	mr, manager := setupTestRedis(t, "sf:")
	ctx := context.Background()

	for i := 0; i < scanBatch+10; i++ {
		require.NoError(t, manager.SetEx(ctx, cache.ProductKey(strconv.Itoa(i)), []byte("x"), time.Minute))
	}
	require.NoError(t, mr.Set("foreign", "keep"))

	require.NoError(t, manager.Clear(ctx))

	assert.Equal(t, []string{"foreign"}, mr.Keys())
}

func TestManager_ClearWithoutPrefixFlushes(t *testing.T) {
	mr, manager := setupTestRedis(t, "")
	ctx := context.Background()

	require.NoError(t, mr.Set("a", "1"))
	require.NoError(t, manager.Clear(ctx))
	assert.Empty(t, mr.Keys())
}

func TestManager_Ping(t *testing.T) {
	mr, manager := setupTestRedis(t, "sf:")
	ctx := context.Background()

	require.NoError(t, manager.Ping(ctx))
	assert.True(t, manager.Healthy())

	mr.SetError("ERR server unavailable")
	assert.Error(t, manager.Ping(ctx))
	assert.False(t, manager.Healthy())

	mr.SetError("")
	require.NoError(t, manager.Ping(ctx))
	assert.True(t, manager.Healthy())
}

func TestManager_HealthCheckLoop(t *testing.T) {
	mr := miniredis.RunT(t)

	config := DefaultConfig()
	config.URL = "redis://" + mr.Addr()
	config.HealthCheckInterval = 10 * time.Millisecond

	manager, err := NewManager(config, zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()

	require.True(t, manager.Healthy())
	mr.SetError("ERR server unavailable")
	require.Eventually(t, func() bool { return !manager.Healthy() }, time.Second, 5*time.Millisecond)
	mr.SetError("")
	require.Eventually(t, manager.Healthy, time.Second, 5*time.Millisecond)
}

func TestManager_Close(t *testing.T) {
	_, manager := setupTestRedis(t, "sf:")
	ctx := context.Background()

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	assert.False(t, manager.Healthy())
	_, err := manager.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, manager.SetEx(ctx, "k", nil, time.Minute), ErrClosed)
	_, err = manager.Del(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = manager.Keys(ctx, "*")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, manager.Clear(ctx), ErrClosed)
	assert.ErrorIs(t, manager.Ping(ctx), ErrClosed)
}

func TestNewManager_HardensTLS(t *testing.T) {
	config := DefaultConfig()
	config.URL = "rediss://127.0.0.1:1/0"
	config.DialTimeout = 100 * time.Millisecond
	config.HealthCheckInterval = 0

	manager, err := NewManager(config, zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()

	tlsConfig := manager.client.Options().TLSConfig
	require.NotNil(t, tlsConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), tlsConfig.MinVersion)
	assert.Equal(t, "127.0.0.1", tlsConfig.ServerName)
	assert.NotEmpty(t, tlsConfig.CipherSuites)
}
