package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/frontier/pkg/config"
	"github.com/wonny/frontier/pkg/logger"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := Connect(context.Background(), &config.Config{
		Redis: config.RedisConfig{Enabled: false},
	})
	require.NoError(t, err)
	return client
}

func TestConnect_Disabled(t *testing.T) {
	client := disabledClient(t)

	assert.False(t, client.Enabled())
	assert.Nil(t, client.Redis())
	assert.Empty(t, client.Addr())
	assert.NoError(t, client.Close())
}

func TestConnectOrDisable_Unreachable(t *testing.T) {
	// 포트 1은 리슨하지 않으므로 PING 실패 → 비활성 클라이언트
	cfg := &config.Config{Redis: config.RedisConfig{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    "1",
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, cfg)
	assert.Error(t, err)

	client := ConnectOrDisable(ctx, cfg, logger.Nop())
	require.NotNil(t, client)
	assert.False(t, client.Enabled())

	found, err := NewCache(client, "test").Get(ctx, "key", new(string))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestCache_FullKey(t *testing.T) {
	cache := NewCache(disabledClient(t), "frontier")
	assert.Equal(t, "frontier:cache:abc", cache.fullKey("abc"))
}

func TestKeys(t *testing.T) {
	a := FrontierKey("2022-06-01", "2023-01-01", "1000", "42")
	b := FrontierKey("2022-06-01", "2023-01-01", "1000", "42")
	c := FrontierKey("2022-06-01", "2023-01-01", "1000", "43")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "frontier:")
	assert.Contains(t, RobustnessKey("0.7"), "robustness:")
	assert.NotEqual(t, FrontierKey("x"), RobustnessKey("x"))
}
