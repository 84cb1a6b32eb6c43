package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/redev/backend/internal/geocode"
	"github.com/wonny/redev/backend/internal/projects"
	"github.com/wonny/redev/backend/internal/scheduler/jobs"
)

// geocodeCmd represents the geocode command
var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "주소 지오코딩 (카카오 로컬 API + SQLite 캐시)",
	Long: `정비사업 주소를 좌표로 변환합니다. 결과는 GEOCODE_SQLITE_PATH에 캐시됩니다.

Subcommands:
  batch   - 자치구(또는 전체) 단지 주소 일괄 조회, --write면 좌표 CSV에 추가
  lookup  - 주소 하나 조회

Example:
  go run ./cmd/redev geocode batch --gu 강남구
  go run ./cmd/redev geocode batch --write
  go run ./cmd/redev geocode lookup "서울특별시 강남구 개포동 660-1"`,
}

var (
	geocodeGu    string
	geocodeWrite bool
)

func init() {
	rootCmd.AddCommand(geocodeCmd)

	batchCmd := &cobra.Command{Use: "batch", Short: "단지 주소 일괄 조회", RunE: runGeocodeBatch}
	batchCmd.Flags().StringVar(&geocodeGu, "gu", "", "자치구 (기본: 전체)")
	batchCmd.Flags().BoolVar(&geocodeWrite, "write", false, "좌표 없는 단지를 COORDS_CSV_PATH에 추가")

	lookupCmd := &cobra.Command{Use: "lookup [address]", Short: "주소 하나 조회", Args: cobra.ExactArgs(1), RunE: runGeocodeLookup}

	geocodeCmd.AddCommand(batchCmd, lookupCmd)
}

func runGeocodeBatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	svc, err := a.geocodeService(cmd.Context())
	if err != nil {
		return err
	}

	if geocodeWrite {
		job := jobs.NewGeocodeBackfillJob(svc, a.cfg.Data.ProjectsCSV, a.cfg.Data.CoordsCSV, a.log)
		out, err := job.Run(cmd.Context())
		if err != nil {
			return err
		}
		PrintSuccess(fmt.Sprintf("Coordinates updated: %s (%s)", a.cfg.Data.CoordsCSV, out))
		return nil
	}

	list, err := projects.LoadProjectsCSV(a.cfg.Data.ProjectsCSV)
	if err != nil {
		return err
	}
	if geocodeGu != "" {
		list = projects.FilterByGu(list, geocodeGu)
	}

	addresses := make([]string, 0, len(list))
	for _, p := range list {
		if p.Address != "" {
			addresses = append(addresses, geocode.BuildFullAddress(p.Gu, p.Address))
		}
	}

	result, err := svc.GeocodeBatch(cmd.Context(), addresses)
	if err != nil {
		return err
	}

	if jsonOut {
		return PrintJSON(result)
	}

	PrintHeader("Geocode batch")
	w := 10
	PrintKeyValue("Requested", fmt.Sprintf("%d", result.Requested), w)
	PrintKeyValue("Cached", fmt.Sprintf("%d", result.Cached), w)
	PrintKeyValue("Fetched", fmt.Sprintf("%d", result.Fetched), w)
	PrintKeyValue("Missed", fmt.Sprintf("%d", result.Missed), w)
	PrintKeyValue("Duration", result.Duration.Round(time.Millisecond).String(), w)
	return nil
}

func runGeocodeLookup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	svc, err := a.geocodeService(cmd.Context())
	if err != nil {
		return err
	}

	r, err := svc.Lookup(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOut {
		return PrintJSON(r)
	}
	if !r.Found {
		PrintWarning(fmt.Sprintf("No result for %q", r.NormAddr))
		return nil
	}
	PrintSuccess(fmt.Sprintf("%s → (%.6f, %.6f) score %.1f", r.NormAddr, r.Lat, r.Lon, r.Score))
	return nil
}
