package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production
	API  APIConfig

	// Database (선택: 시나리오 실행 이력 저장)
	Database DatabaseConfig

	// Redis (선택: 분석 결과 메모이제이션)
	Redis RedisConfig

	// Data files
	Data DataConfig

	// Traffic analysis defaults
	Traffic TrafficConfig

	// External APIs
	Kakao KakaoConfig

	// Geocode cache
	Geocode GeocodeConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// APIConfig holds HTTP server timeouts
// WriteTimeout은 Monte Carlo 최대 반복(5000회) 응답을 기준으로 여유 있게
type APIConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a PostgreSQL URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// DataConfig holds input/output file locations
// 교통 기준년도(BaseYear) 데이터는 엑셀 → CSV 자동 변환 대상
type DataConfig struct {
	Dir           string
	BaseYear      int
	TrafficXLSX   string // AverageSpeed(LINK).xlsx
	TrafficCSV    string // AverageSpeed_Seoul_<year>.csv (정규화 캐시)
	VolumeCSV     string // 링크×시간대 차량대수
	ProjectsCSV   string // seoul_redev_projects.csv
	CoordsCSV     string // 지오코딩된 단지 좌표
	LinkPointsCSV string // 링크 중심점 (link_id, lat, lon)
	PresetsYAML   string // 비어 있으면 내장 프리셋 사용
}

// TrafficConfig holds defaults for the congestion pipeline
type TrafficConfig struct {
	RadiusM       float64
	MaxLinks      int
	BoundaryMode  string  // percentile, fixed
	BoundaryValue float64 // percentile: 5~95, fixed: km/h
	TauKmh        float64
	MinSamples    float64
	LinkIDPrefer  string // lev55, its
}

// KakaoConfig holds Kakao Local API configuration
type KakaoConfig struct {
	RESTAPIKey string
	BaseURL    string
	Timeout    time.Duration
	QPS        float64
}

// GeocodeConfig holds the geocode cache configuration
type GeocodeConfig struct {
	SQLitePath  string
	LRUSize     int
	Concurrency int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	dataDir := getEnv("DATA_DIR", "data")
	baseYear := getEnvAsInt("BASE_YEAR", 2023)

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),
		API: APIConfig{
			ReadTimeout:     getEnvAsDuration("API_READ_TIMEOUT", "15s"),
			WriteTimeout:    getEnvAsDuration("API_WRITE_TIMEOUT", "60s"),
			IdleTimeout:     getEnvAsDuration("API_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("API_SHUTDOWN_TIMEOUT", "30s"),
		},

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Data
		Data: DataConfig{
			Dir:           dataDir,
			BaseYear:      baseYear,
			TrafficXLSX:   getEnv("TRAFFIC_XLSX_PATH", filepath.Join(dataDir, "AverageSpeed(LINK).xlsx")),
			TrafficCSV:    getEnv("TRAFFIC_CSV_PATH", filepath.Join(dataDir, fmt.Sprintf("AverageSpeed_Seoul_%d.csv", baseYear))),
			VolumeCSV:     getEnv("VOLUME_CSV_PATH", filepath.Join(dataDir, fmt.Sprintf("TrafficVolume_Seoul_%d.csv", baseYear))),
			ProjectsCSV:   getEnv("PROJECTS_CSV_PATH", filepath.Join(dataDir, "seoul_redev_projects.csv")),
			CoordsCSV:     getEnv("COORDS_CSV_PATH", filepath.Join(dataDir, "서울시_재개발재건축_clean_kakao.csv")),
			LinkPointsCSV: getEnv("LINKS_CSV_PATH", filepath.Join(dataDir, "seoul_link_points.csv")),
			PresetsYAML:   getEnv("PRESETS_YAML_PATH", ""),
		},

		// Traffic
		Traffic: TrafficConfig{
			RadiusM:       getEnvAsFloat("TRAFFIC_RADIUS_M", 1000),
			MaxLinks:      getEnvAsInt("TRAFFIC_MAX_LINKS", 10000),
			BoundaryMode:  getEnv("CFI_BOUNDARY_MODE", "percentile"),
			BoundaryValue: getEnvAsFloat("CFI_BOUNDARY_VALUE", 40),
			TauKmh:        getEnvAsFloat("CFI_TAU_KMH", 6),
			MinSamples:    getEnvAsFloat("CFI_MIN_SAMPLES", 30),
			LinkIDPrefer:  getEnv("LINK_ID_PREFER", "lev55"),
		},

		// External APIs
		Kakao: KakaoConfig{
			RESTAPIKey: getEnv("KAKAO_REST_API_KEY", ""),
			BaseURL:    getEnv("KAKAO_BASE_URL", "https://dapi.kakao.com"),
			Timeout:    getEnvAsDuration("KAKAO_TIMEOUT", "5s"),
			QPS:        getEnvAsFloat("KAKAO_QPS", 4),
		},

		Geocode: GeocodeConfig{
			SQLitePath:  getEnv("GEOCODE_SQLITE_PATH", filepath.Join(dataDir, "geocode_cache.db")),
			LRUSize:     getEnvAsInt("GEOCODE_LRU_SIZE", 10000),
			Concurrency: getEnvAsInt("GEOCODE_CONCURRENCY", 4),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Data.BaseYear < 2000 || c.Data.BaseYear > 2100 {
		return fmt.Errorf("BASE_YEAR out of range: %d", c.Data.BaseYear)
	}

	if c.API.ReadTimeout <= 0 || c.API.WriteTimeout <= 0 || c.API.ShutdownTimeout <= 0 {
		return fmt.Errorf("API_READ_TIMEOUT, API_WRITE_TIMEOUT and API_SHUTDOWN_TIMEOUT must be > 0")
	}

	if c.Traffic.RadiusM <= 0 {
		return fmt.Errorf("TRAFFIC_RADIUS_M must be > 0")
	}

	if c.Traffic.BoundaryMode != "percentile" && c.Traffic.BoundaryMode != "fixed" {
		return fmt.Errorf("CFI_BOUNDARY_MODE must be one of: percentile, fixed")
	}

	if c.Traffic.LinkIDPrefer != "lev55" && c.Traffic.LinkIDPrefer != "its" {
		return fmt.Errorf("LINK_ID_PREFER must be one of: lev55, its")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
