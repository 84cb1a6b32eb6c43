package config_test

import (
	"fmt"

	"github.com/wonny/redev/backend/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Server running on port: %s\n", cfg.Port)
	fmt.Printf("Speed cache: %s\n", cfg.Data.TrafficCSV)
	fmt.Printf("Kakao key set: %v\n", cfg.Kakao.RESTAPIKey != "")
}
