package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/redev/backend/pkg/config"
	"github.com/wonny/redev/backend/pkg/httputil"
	"github.com/wonny/redev/backend/pkg/logger"
)

// =============================================================================
// Address
// =============================================================================

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  강남구   개포동 660-1 ", "강남구 개포동 660-1"},
		{"개포동 660-1 (개포주공1단지)", "개포동 660-1"},
		{"대치동 (일대) 1", "대치동 1"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.in))
		})
	}
}

func TestBuildFullAddress(t *testing.T) {
	tests := []struct {
		name, gu, addr, want string
	}{
		{"prefix gu and city", "강남구", "개포동 660-1", "서울특별시 강남구 개포동 660-1"},
		{"gu already present", "강남구", "강남구 개포동 660-1", "서울특별시 강남구 개포동 660-1"},
		{"already seoul", "강남구", "서울 강남구 개포동", "서울 강남구 개포동"},
		{"gyeonggi kept", "", "경기도 성남시 분당구", "경기도 성남시 분당구"},
		{"floor and unit", "마포구", "아현동 12 3층 101호", "서울특별시 마포구 아현동 12"},
		{"parens and 외", "종로구", "창신동 23-1 외 (일대)", "서울특별시 종로구 창신동 23-1"},
		{"no gu", "", "명동 1", "서울특별시 명동 1"},
		{"empty", "중구", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFullAddress(tt.gu, tt.addr))
		})
	}
}

// =============================================================================
// Kakao
// =============================================================================

func newTestKakao(t *testing.T, handler http.HandlerFunc) *KakaoClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hc := httputil.NewWithTimeout(&config.Config{}, logger.Nop(), 5*time.Second).WithRetry(2, time.Millisecond)
	return newKakaoClient(hc, logger.Nop(), srv.URL, "test-key", 0)
}

func TestNewKakaoClient_MissingKey(t *testing.T) {
	_, err := NewKakaoClient(&config.Config{}, logger.Nop())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestKakaoClient_Geocode(t *testing.T) {
	var gotAuth, gotQuery, gotPath string
	c := newTestKakao(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"documents":[{"address_name":"서울 강남구 개포동 660-1","x":"127.0601","y":"37.4812","road_address":{"address_name":"서울 강남구 개포로 1"}}]}`)
	})

	r, err := c.Geocode(context.Background(), "서울특별시 강남구 개포동 660-1")
	require.NoError(t, err)

	assert.Equal(t, "KakaoAK test-key", gotAuth)
	assert.Equal(t, "서울특별시 강남구 개포동 660-1", gotQuery)
	assert.Equal(t, kakaoAddressPath, gotPath)
	assert.True(t, r.Found)
	assert.Equal(t, 37.4812, r.Lat)
	assert.Equal(t, 127.0601, r.Lon)
	assert.Equal(t, 1.0, r.Score)
	assert.Equal(t, SourceKakao, r.Source)
}

func TestKakaoClient_LotAddressScore(t *testing.T) {
	c := newTestKakao(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"documents":[{"x":"126.9","y":"37.5","road_address":null}]}`)
	})

	r, err := c.Geocode(context.Background(), "명동 1")
	require.NoError(t, err)
	assert.Equal(t, 0.8, r.Score)
}

func TestKakaoClient_NoResult(t *testing.T) {
	c := newTestKakao(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"documents":[]}`)
	})

	_, err := c.Geocode(context.Background(), "없는 주소")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestKakaoClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestKakao(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"documents":[{"x":"127","y":"37.5"}]}`)
	})

	r, err := c.Geocode(context.Background(), "명동 1")
	require.NoError(t, err)
	assert.True(t, r.Found)
	assert.Equal(t, int32(3), calls.Load())
}

func TestKakaoClient_Unauthorized(t *testing.T) {
	c := newTestKakao(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Geocode(context.Background(), "명동 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

// =============================================================================
// Cache
// =============================================================================

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(context.Background(), filepath.Join(t.TempDir(), "geocode.db"), 16)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)

	_, ok, err := c.Get(ctx, "명동 1")
	require.NoError(t, err)
	assert.False(t, ok)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	want := Result{NormAddr: "명동 1", RawAddr: "명동 1 (상가)", Lat: 37.56, Lon: 126.98, Found: true, Score: 1, Source: SourceKakao, UpdatedAt: ts}
	require.NoError(t, c.Put(ctx, want))

	got, ok, err := c.Get(ctx, "명동 1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	// LRU를 비워도 SQLite에서 복원
	assert.Equal(t, 1, c.PurgeMemory())
	assert.False(t, c.InMemory("명동 1"))
	got, ok, err = c.Get(ctx, "명동 1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.True(t, c.InMemory("명동 1"))

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCache_MissStoredAsNull(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, c.Put(ctx, Result{NormAddr: "없는 주소", RawAddr: "없는 주소", Source: SourceKakao, UpdatedAt: old}))
	require.NoError(t, c.Put(ctx, Result{NormAddr: "명동 1", RawAddr: "명동 1", Lat: 1, Lon: 2, Found: true, Score: 1, Source: SourceKakao, UpdatedAt: old}))
	c.PurgeMemory()

	got, ok, err := c.Get(ctx, "없는 주소")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Found)
	assert.Equal(t, 0.0, got.Score)

	deleted, err := c.DeleteMisses(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, ok, err = c.Get(ctx, "없는 주소")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_PutRequiresAddress(t *testing.T) {
	assert.Error(t, openTestCache(t).Put(context.Background(), Result{}))
}

// =============================================================================
// Service
// =============================================================================

type fakeGeocoder struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (f *fakeGeocoder) Geocode(ctx context.Context, addr string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[addr]++

	if f.err != nil {
		return Result{}, f.err
	}
	if addr == "없는 주소" {
		return Result{}, fmt.Errorf("%w: %s", ErrNoResult, addr)
	}
	return Result{Lat: 37.5, Lon: 127, Found: true, Score: 1, Source: SourceKakao}, nil
}

func TestService_GeocodeBatch(t *testing.T) {
	ctx := context.Background()
	geo := &fakeGeocoder{}
	svc := NewService(geo, openTestCache(t), logger.Nop(), nil, 2)

	addrs := []string{"명동 1", " 명동  1 ", "없는 주소", "", "종로 1 (일대)", "종로 1"}
	res, err := svc.GeocodeBatch(ctx, addrs)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, 0, res.Cached)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 1, res.Missed)

	// 두 번째 배치는 전부 캐시 (실패도 score 0으로 저장됨)
	res, err = svc.GeocodeBatch(ctx, addrs)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Cached)
	assert.Equal(t, 0, res.Fetched)

	assert.Equal(t, 1, geo.calls["명동 1"])
	assert.Equal(t, 1, geo.calls["없는 주소"])

	r, err := svc.Lookup(ctx, "종로 1")
	require.NoError(t, err)
	assert.True(t, r.Found)
	assert.Equal(t, "종로 1", r.NormAddr)
}

func TestService_GeocodeBatchStopsOnMissingKey(t *testing.T) {
	svc := NewService(&fakeGeocoder{err: ErrMissingAPIKey}, openTestCache(t), logger.Nop(), nil, 1)

	_, err := svc.GeocodeBatch(context.Background(), []string{"명동 1"})
	assert.True(t, errors.Is(err, ErrMissingAPIKey))

	n, err := svc.Cache().Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestService_LookupEmpty(t *testing.T) {
	svc := NewService(&fakeGeocoder{}, openTestCache(t), logger.Nop(), nil, 1)
	_, err := svc.Lookup(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestNoKeyGeocoder_ServesCacheOnly(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t)
	require.NoError(t, cache.Put(ctx, Result{NormAddr: "종로 1", RawAddr: "종로 1", Found: true, Lat: 37.57, Lon: 126.98, Score: 1}))

	svc := NewService(NoKeyGeocoder{}, cache, logger.Nop(), nil, 1)

	r, err := svc.Lookup(ctx, "종로  1")
	require.NoError(t, err)
	assert.True(t, r.Found)

	_, err = svc.Lookup(ctx, "명동 1")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
