package geocode

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bluele/gcache"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DefaultLRUSize 메모리 캐시 기본 크기
const DefaultLRUSize = 10000

// Result 지오코딩 결과
// Found == false: 조회했지만 좌표 없음 (score 0으로 저장해 재조회 방지)
type Result struct {
	NormAddr  string    `json:"norm_addr"`
	RawAddr   string    `json:"raw_addr"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Found     bool      `json:"found"`
	Score     float64   `json:"score"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cache 메모리 LRU + SQLite 영속 캐시
// 읽기: LRU → SQLite (히트 시 LRU 채움), 쓰기: SQLite → LRU
type Cache struct {
	lru     gcache.Cache
	db      *sql.DB
	writeMu sync.Mutex // SQLite는 단일 writer
}

// OpenCache SQLite 파일을 열고 스키마 생성
func OpenCache(ctx context.Context, path string, lruSize int) (*Cache, error) {
	if lruSize <= 0 {
		lruSize = DefaultLRUSize
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open geocode cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping geocode cache: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create geocode schema: %w", err)
	}

	return &Cache{
		lru: gcache.New(lruSize).LRU().Build(),
		db:  db,
	}, nil
}

// Close closes the SQLite handle
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get 정규화 주소로 조회. 없으면 (Result{}, false, nil)
func (c *Cache) Get(ctx context.Context, normAddr string) (Result, bool, error) {
	if v, err := c.lru.Get(normAddr); err == nil {
		return v.(Result), true, nil
	}

	r, err := c.load(ctx, normAddr)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}

	_ = c.lru.Set(normAddr, r)
	return r, true, nil
}

// InMemory LRU에 올라와 있는지 (SQLite 조회 없음)
func (c *Cache) InMemory(normAddr string) bool {
	return c.lru.Has(normAddr)
}

func (c *Cache) load(ctx context.Context, normAddr string) (Result, error) {
	var (
		r        Result
		lat, lon sql.NullFloat64
		updated  int64
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT norm_addr, raw_addr, lat, lon, score, source, updated_at
		FROM geocode_cache
		WHERE norm_addr = ?
	`, normAddr).Scan(&r.NormAddr, &r.RawAddr, &lat, &lon, &r.Score, &r.Source, &updated)
	if err != nil {
		return Result{}, err
	}

	if lat.Valid && lon.Valid {
		r.Lat, r.Lon, r.Found = lat.Float64, lon.Float64, true
	}
	r.UpdatedAt = time.Unix(updated, 0).UTC()
	return r, nil
}

// Put 결과 저장 (같은 주소는 최신 값으로 교체)
func (c *Cache) Put(ctx context.Context, r Result) error {
	if r.NormAddr == "" {
		return fmt.Errorf("geocode cache: empty address")
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}

	var lat, lon sql.NullFloat64
	if r.Found {
		lat = sql.NullFloat64{Float64: r.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: r.Lon, Valid: true}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (norm_addr, raw_addr, lat, lon, score, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(norm_addr) DO UPDATE SET
			raw_addr = excluded.raw_addr,
			lat = excluded.lat,
			lon = excluded.lon,
			score = excluded.score,
			source = excluded.source,
			updated_at = excluded.updated_at
	`, r.NormAddr, r.RawAddr, lat, lon, r.Score, r.Source, r.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("geocode cache put: %w", err)
	}

	// 초 단위로 저장되므로 LRU도 같은 정밀도로
	r.UpdatedAt = time.Unix(r.UpdatedAt.Unix(), 0).UTC()
	_ = c.lru.Set(r.NormAddr, r)
	return nil
}

// Len SQLite에 저장된 주소 수
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM geocode_cache`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// MemoryLen LRU 항목 수
func (c *Cache) MemoryLen() int {
	return c.lru.Len(false)
}

// PurgeMemory LRU 비우기 (SQLite는 유지)
func (c *Cache) PurgeMemory() int {
	n := c.lru.Len(false)
	c.lru.Purge()
	return n
}

// DeleteMisses 오래된 실패 결과 삭제 (다음 배치에서 재조회)
func (c *Cache) DeleteMisses(ctx context.Context, olderThan time.Time) (int64, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	res, err := c.db.ExecContext(ctx, `
		DELETE FROM geocode_cache
		WHERE lat IS NULL AND updated_at < ?
	`, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("geocode cache delete misses: %w", err)
	}
	c.lru.Purge()
	return res.RowsAffected()
}
