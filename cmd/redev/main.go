package main

import (
	"os"

	"github.com/wonny/redev/backend/cmd/redev/commands"
)

// main is the entry point for the redev CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/redev [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
