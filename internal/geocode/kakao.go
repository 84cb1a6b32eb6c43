package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/redev/backend/pkg/config"
	"github.com/wonny/redev/backend/pkg/httputil"
	"github.com/wonny/redev/backend/pkg/logger"
	"github.com/wonny/redev/backend/pkg/redis"
)

var (
	// ErrMissingAPIKey KAKAO_REST_API_KEY 미설정
	ErrMissingAPIKey = errors.New("kakao rest api key is missing")

	// ErrNoResult 주소 검색 결과 없음
	ErrNoResult = errors.New("no geocode result")
)

const (
	kakaoAddressPath = "/v2/local/search/address.json"
	kakaoRetries     = 2
	kakaoRetryDelay  = 250 * time.Millisecond

	// 좌표 신뢰도: 도로명 주소 매칭 1.0, 지번만 0.8
	scoreRoadAddress = 1.0
	scoreLotAddress  = 0.8

	// SourceKakao 지오코딩 출처
	SourceKakao = "kakao"
)

// Geocoder 주소 → 좌표
type Geocoder interface {
	Geocode(ctx context.Context, addr string) (Result, error)
}

// KakaoClient 카카오 로컬 주소 검색 API 클라이언트
// ⭐ SSOT: 카카오 API 호출은 이 클라이언트에서만
type KakaoClient struct {
	http    *httputil.Client
	logger  *logger.Logger
	limiter *rate.Limiter
	apiKey  string
	baseURL string
}

// NewKakaoClient creates a Kakao client (5s timeout, 2 retries, breaker, QPS limit)
func NewKakaoClient(cfg *config.Config, log *logger.Logger) (*KakaoClient, error) {
	if cfg.Kakao.RESTAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	httpClient := httputil.NewWithTimeout(cfg, log, cfg.Kakao.Timeout).
		WithRetry(kakaoRetries, kakaoRetryDelay).
		WithBreaker("kakao", 5, 30*time.Second)

	return newKakaoClient(httpClient, log, cfg.Kakao.BaseURL, cfg.Kakao.RESTAPIKey, cfg.Kakao.QPS), nil
}

// WithSharedLimit 같은 API 키를 쓰는 프로세스 간 초당 호출 수 제한 (Redis 슬라이딩 윈도우)
// Redis가 비활성이면 limiter가 항상 허용하므로 로컬 limiter만 적용됨
func (c *KakaoClient) WithSharedLimit(limiter *redis.RateLimiter, perSecond int) *KakaoClient {
	if limiter == nil || perSecond <= 0 {
		return c
	}
	c.http.WithRateLimiter(limiter, redis.RateLimitConfig{
		Key:    SourceKakao,
		Limit:  perSecond,
		Window: time.Second,
	})
	return c
}

// NoKeyGeocoder API 키 없이 실행할 때 사용 (캐시에 있는 주소만 조회 가능)
type NoKeyGeocoder struct{}

// Geocode always fails with ErrMissingAPIKey
func (NoKeyGeocoder) Geocode(ctx context.Context, addr string) (Result, error) {
	return Result{}, ErrMissingAPIKey
}

func newKakaoClient(httpClient *httputil.Client, log *logger.Logger, baseURL, apiKey string, qps float64) *KakaoClient {
	limit := rate.Inf
	burst := 1
	if qps > 0 {
		limit = rate.Limit(qps)
		burst = int(qps)
		if burst < 1 {
			burst = 1
		}
	}

	return &KakaoClient{
		http:    httpClient,
		logger:  log.WithComponent("kakao"),
		limiter: rate.NewLimiter(limit, burst),
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

// kakaoResponse /v2/local/search/address.json 응답
type kakaoResponse struct {
	Documents []kakaoDocument `json:"documents"`
}

type kakaoDocument struct {
	AddressName string          `json:"address_name"`
	X           string          `json:"x"` // 경도
	Y           string          `json:"y"` // 위도
	RoadAddress json.RawMessage `json:"road_address"`
}

func (d kakaoDocument) hasRoadAddress() bool {
	return len(d.RoadAddress) > 0 && string(d.RoadAddress) != "null"
}

// Geocode 주소 검색 첫 번째 결과
// 결과 없음: ErrNoResult
func (c *KakaoClient) Geocode(ctx context.Context, addr string) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	endpoint := c.baseURL + kakaoAddressPath + "?query=" + url.QueryEscape(addr)
	resp, err := c.http.GetWithHeaders(ctx, endpoint, map[string]string{
		"Authorization": "KakaoAK " + c.apiKey,
	})
	if err != nil {
		return Result{}, fmt.Errorf("kakao geocode %q: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("kakao geocode %q: status %d", addr, resp.StatusCode)
	}

	var body kakaoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("kakao decode: %w", err)
	}
	if len(body.Documents) == 0 {
		c.logger.WithField("address", addr).Warn("No geocode result")
		return Result{}, fmt.Errorf("%w: %s", ErrNoResult, addr)
	}

	doc := body.Documents[0]
	lon, errX := strconv.ParseFloat(doc.X, 64)
	lat, errY := strconv.ParseFloat(doc.Y, 64)
	if errX != nil || errY != nil {
		return Result{}, fmt.Errorf("kakao geocode %q: invalid coordinates x=%q y=%q", addr, doc.X, doc.Y)
	}

	score := scoreLotAddress
	if doc.hasRoadAddress() {
		score = scoreRoadAddress
	}

	return Result{
		RawAddr:   addr,
		NormAddr:  NormalizeAddress(addr),
		Lat:       lat,
		Lon:       lon,
		Found:     true,
		Score:     score,
		Source:    SourceKakao,
		UpdatedAt: time.Now().UTC(),
	}, nil
}
