package cache_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/cache"
	"github.com/Additional-Code/procura/internal/config"
)

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var store cache.Store = cache.Noop{}

	require.NoError(t, store.Set(ctx, "orders:1", []byte("x"), time.Minute))
	_, err := store.Get(ctx, "orders:1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	assert.NoError(t, store.Delete(ctx, "orders:1"))
}

func TestNewStore(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	var cfg config.Config
	cfg.Cache.Driver = "noop"
	store, err := cache.NewStore(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, cache.Noop{}, store)

	cfg.Cache.Driver = "memcached"
	_, err = cache.NewStore(lc, cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestRedis_KeysAndBlankKeys(t *testing.T) {
	ctx := context.Background()
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	store := cache.NewRedis(client, "procura", time.Minute)
	assert.Equal(t, "procura:orders:7", store.Key("orders:7"))
	assert.Equal(t, "orders:7", cache.NewRedis(client, "", time.Minute).Key("orders:7"))

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	assert.ErrorIs(t, store.Set(ctx, "", nil, 0), cache.ErrEmptyKey)
	assert.NoError(t, store.Delete(ctx, ""))

	_, err = store.Get(ctx, "orders:7")
	require.Error(t, err)
	assert.NotErrorIs(t, err, cache.ErrCacheMiss, "connection failures are not misses")
}
