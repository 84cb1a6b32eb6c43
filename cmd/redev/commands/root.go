package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
	jsonOut bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "redev",
	Short: "서울 재개발·재건축 의사결정 도우미",
	Long: `Seoul Redevelopment Decision Helper CLI

링크 속도 보고서 정규화, 혼잡도 추세/재건축 후 추정,
버스 증편 완화안, 사업성 시나리오 비교를 한 CLI에서.

Usage:
  go run ./cmd/redev [command]

Examples:
  go run ./cmd/redev api
  go run ./cmd/redev normalize "data/AverageSpeed(LINK).xlsx"
  go run ./cmd/redev scenario compare --preset base
  go run ./cmd/redev trend --gu 강남구 --planned 2000 --existing 1000
  go run ./cmd/redev db migrate`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (LOG_LEVEL=debug)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")
}
