package traffic

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSpeedCSV(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "AverageSpeed(LINK).xlsx")
	dst := filepath.Join(dir, "cache", "AverageSpeed_Seoul_2023.csv")

	writeXLSX(t, src, wideRows(map[string][]string{
		"1000000100.0": constSpeeds("30"),
		"1000000200":   constSpeeds("45"),
	}))

	regenerated, err := EnsureSpeedCSV(src, dst, EnsureOptions{})
	require.NoError(t, err)
	assert.True(t, regenerated, "missing cache must be generated")

	table, err := LoadSpeedCSV(dst)
	require.NoError(t, err)
	assert.Len(t, table, 48)

	regenerated, err = EnsureSpeedCSV(src, dst, EnsureOptions{})
	require.NoError(t, err)
	assert.False(t, regenerated, "fresh cache must be reused")

	regenerated, err = EnsureSpeedCSV(src, dst, EnsureOptions{Force: true})
	require.NoError(t, err)
	assert.True(t, regenerated)

	// 원본이 캐시보다 새로우면 재생성
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(dst, past, past))

	regenerated, err = EnsureSpeedCSV(src, dst, EnsureOptions{})
	require.NoError(t, err)
	assert.True(t, regenerated, "stale cache must be regenerated")
}

func TestEnsureSpeedCSV_MissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "cache.csv")

	_, err := EnsureSpeedCSV(filepath.Join(dir, "nope.xlsx"), dst, EnsureOptions{})
	assert.ErrorIs(t, err, fs.ErrNotExist)

	// 캐시만 있으면 그대로 사용
	require.NoError(t, os.WriteFile(dst, []byte(strings.Join(CanonicalHeader, ",")+"\n"), 0o644))
	regenerated, err := EnsureSpeedCSV(filepath.Join(dir, "nope.xlsx"), dst, EnsureOptions{})
	require.NoError(t, err)
	assert.False(t, regenerated)
}

func TestEnsureSpeedCSV_BadLayout(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.xlsx")
	writeXLSX(t, src, [][]string{{"title"}, {"a", "b"}})

	_, err := EnsureSpeedCSV(src, filepath.Join(dir, "out.csv"), EnsureOptions{})
	assert.ErrorIs(t, err, ErrHeaderNotFound)

	_, statErr := os.Stat(filepath.Join(dir, "out.csv"))
	assert.ErrorIs(t, statErr, fs.ErrNotExist, "failed conversion must not leave a cache file")
}

func TestLoadVolumeCSV(t *testing.T) {
	in := "link_id,hour,차량대수\n" +
		"100.0,8시,120\n" +
		"100, 08 ,abc\n" +
		"200,25,\"1,500\"\n" +
		"200,,7\n" +
		"300,8.0,-3\n"

	vols, err := LoadVolumeCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, vols, 5)

	assert.Equal(t, VolumeRecord{LinkID: "100", Hour: 8, Vehicles: 120}, vols[0])
	assert.Equal(t, VolumeRecord{LinkID: "100", Hour: 8, Vehicles: 0}, vols[1])
	assert.Equal(t, VolumeRecord{LinkID: "200", Hour: 1, Vehicles: 1500}, vols[2])
	assert.Equal(t, VolumeRecord{LinkID: "200", Hour: 0, Vehicles: 7}, vols[3])
	assert.Equal(t, VolumeRecord{LinkID: "300", Hour: 8, Vehicles: 0}, vols[4])
}

func TestLoadVolumeCSV_MissingColumn(t *testing.T) {
	_, err := LoadVolumeCSV(strings.NewReader("link_id,hour\n1,2\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}
