package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/redev/backend/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), KakaoRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, KakaoRateLimit.Limit, remaining)
	assert.NoError(t, limiter.Wait(context.Background(), KakaoRateLimit))
}

func TestWindowMember_UniqueWithinMillisecond(t *testing.T) {
	now := time.Now().UnixMilli()
	prefix := fmt.Sprintf("%d:", now)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		m := windowMember(now)
		assert.True(t, strings.HasPrefix(m, prefix))
		seen[m] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestRateLimiter_ConcurrentBurst(t *testing.T) {
	if os.Getenv("REDIS_ENABLED") != "true" {
		t.Skip("REDIS_ENABLED not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	client, err := New(cfg)
	require.NoError(t, err)
	defer client.Close()

	limiter := NewRateLimiter(client, "redev_test_"+time.Now().Format("150405.000"))
	limit := RateLimitConfig{Key: "burst", Limit: 5, Window: time.Minute}

	var (
		mu      sync.Mutex
		allowed int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := limiter.Allow(context.Background(), limit)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit.Limit, allowed)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(ctx, "key", "value", TTLShort))
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestCache_GetOrSetComputesWhenDisabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")

	calls := 0
	var got []float64
	err := cache.GetOrSet(context.Background(), "k", &got, TTLShort, func() (interface{}, error) {
		calls++
		return []float64{1.5, 2.5}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []float64{1.5, 2.5}, got)

	boom := errors.New("boom")
	err = cache.GetOrSet(context.Background(), "k", &got, TTLShort, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestContentKey(t *testing.T) {
	type params struct {
		Gu     string
		Radius float64
	}

	k1, err := ContentKey("trend", params{"강남구", 1000})
	require.NoError(t, err)
	k2, _ := ContentKey("trend", params{"강남구", 1000})
	k3, _ := ContentKey("trend", params{"강남구", 1500})

	assert.Equal(t, k1, k2, "same input must give same key")
	assert.NotEqual(t, k1, k3)
	assert.True(t, strings.HasPrefix(k1, "trend:"))
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "geocode:서울특별시 강남구 개포동 12", GeocodeKey("서울특별시 강남구 개포동 12"))
}
