package traffic

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WriteSpeedCSV 정규화 테이블을 canonical CSV로 기록
func WriteSpeedCSV(w io.Writer, table SpeedTable) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CanonicalHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range table {
		rec := []string{
			r.LinkID,
			r.Label,
			strconv.FormatFloat(r.AvgSpeed, 'f', -1, 64),
			strconv.Itoa(r.Hour),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadSpeedCSV canonical CSV 읽기 (its_link_id → link_id)
func ReadSpeedCSV(r io.Reader) (SpeedTable, error) {
	rows, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return SpeedTable{}, nil
	}
	return speedTableFromLong(rows)
}

// LoadSpeedCSV opens path and calls ReadSpeedCSV
func LoadSpeedCSV(path string) (SpeedTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadSpeedCSV(f)
}

// EnsureOptions 캐시 CSV 재생성 옵션
type EnsureOptions struct {
	NormalizeOptions
	Force bool
}

// EnsureSpeedCSV 원본 보고서 → 정규화 CSV 캐시
// dst가 없거나, src가 dst보다 새롭거나, Force일 때만 재생성.
// 반환값: 재생성 여부
func EnsureSpeedCSV(src, dst string, opts EnsureOptions) (bool, error) {
	regenerate, err := needsRegeneration(src, dst, opts.Force)
	if err != nil || !regenerate {
		return false, err
	}

	rows, err := ReadSheet(src, opts.Sheet)
	if err != nil {
		return false, err
	}

	table, err := NormalizeSpeedTable(rows, opts.NormalizeOptions)
	if err != nil {
		return false, fmt.Errorf("normalize %s: %w", src, err)
	}

	if err := writeFileAtomic(dst, func(w io.Writer) error {
		return WriteSpeedCSV(w, table)
	}); err != nil {
		return false, err
	}

	return true, nil
}

func needsRegeneration(src, dst string, force bool) (bool, error) {
	srcInfo, srcErr := os.Stat(src)
	dstInfo, dstErr := os.Stat(dst)

	if srcErr != nil && !errors.Is(srcErr, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", src, srcErr)
	}
	if dstErr != nil && !errors.Is(dstErr, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", dst, dstErr)
	}

	srcExists := srcErr == nil
	dstExists := dstErr == nil

	switch {
	case !srcExists && !dstExists:
		return false, fmt.Errorf("speed source %s: %w", src, fs.ErrNotExist)
	case !srcExists:
		// 원본 없이 캐시만 배포된 경우
		return false, nil
	case force || !dstExists:
		return true, nil
	default:
		return srcInfo.ModTime().After(dstInfo.ModTime()), nil
	}
}

// writeFileAtomic 같은 디렉터리의 임시 파일에 쓴 뒤 rename
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// Volume
// =============================================================================

// LoadVolumeCSV 교통량 CSV (link_id, hour, 차량대수)
// hour: 첫 숫자열 mod 24 (없으면 0), 차량대수: 숫자 변환 실패 시 0
func LoadVolumeCSV(r io.Reader) ([]VolumeRecord, error) {
	rows, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []VolumeRecord{}, nil
	}

	idx := headerIndex(rows[0])
	linkCol, ok := idx[ColLinkID]
	if !ok {
		linkCol, ok = idx[ColITSLinkID]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColLinkID)
	}
	hourCol, ok := idx[ColHour]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColHour)
	}
	vehCol, ok := idx[ColVehicles]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColVehicles)
	}

	out := make([]VolumeRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := VolumeRecord{
			LinkID:   cell(row, linkCol),
			Hour:     coerceHour(cell(row, hourCol)),
			Vehicles: coerceVehicles(cell(row, vehCol)),
		}
		if id, ok := NormalizeLinkID(rec.LinkID); ok {
			rec.LinkID = id
		}
		out = append(out, rec)
	}

	return out, nil
}

// LoadVolumeFile opens path and calls LoadVolumeCSV
func LoadVolumeFile(path string) ([]VolumeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadVolumeCSV(f)
}

func coerceVehicles(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(raw, ",", "")), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
