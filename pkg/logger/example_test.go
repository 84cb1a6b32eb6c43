package logger_test

import (
	"errors"

	"github.com/wonny/redev/backend/pkg/config"
	"github.com/wonny/redev/backend/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	log := logger.New(cfg)

	log.Info("Speed cache refreshed")
	log.Warnf("Volume CSV missing, falling back to hard congestion (%s)", "data/TrafficVolume_Seoul_2023.csv")
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	log.WithComponent("trend").WithFields(map[string]interface{}{
		"gu":       "강남구",
		"radius_m": 1000,
		"links":    42,
	}).Info("Trend curve fitted")

	log.WithError(errors.New("kakao: 429")).Error("Geocode failed")
}
