package geo

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/udisondev/la2geo/internal/testutil"
)

func TestReadManifest(t *testing.T) {
	entries, err := ReadManifest(strings.NewReader(" 16_10 \n\n17_10\r\n-1_5\n"))
	require.NoError(t, err)
	assert.Equal(t, []ManifestEntry{{16, 10}, {17, 10}, {-1, 5}}, entries)

	for _, bad := range []string{"16-10", "a_1", "1_b", "200_1", "16_"} {
		_, err := ReadManifest(strings.NewReader(bad))
		assert.Error(t, err, bad)
	}
}

func TestLoad_Regions(t *testing.T) {
	dir := t.TempDir()
	flat := testutil.FlatRegion(500)
	complexData := complexWithCell(3, 3, 0, NSWEEast)
	testutil.WriteRegionFile(t, dir, 16, 10, flat)
	testutil.WriteRegionFile(t, dir, 17, 10, complexData)
	testutil.WriteManifest(t, dir, "16_10", "", "17_10")

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	store := NewRegionStore(nil, metrics)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Load(context.Background(), LoadOptions{Dir: dir, Workers: 2}))
	assert.True(t, store.Loaded())
	assert.Equal(t, 2, store.Count())

	r := store.Region(16, 10)
	require.NotNil(t, r)
	assert.False(t, r.Indexed())
	assert.Equal(t, FlatRegionSize, r.Size())
	assert.Nil(t, r.Digest())

	r = store.Region(17, 10)
	require.NotNil(t, r)
	assert.True(t, r.Indexed())

	got, ok := store.RegionFor(2048, 0)
	require.True(t, ok)
	assert.Same(t, r, got)

	_, ok = store.RegionFor(0, 2048)
	assert.False(t, ok)

	regions := store.Regions()
	require.Len(t, regions, 2)
	assert.Less(t, regions[0].Offset(), regions[1].Offset())

	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.regionsLoaded))
	assert.Equal(t, float64(len(flat)+len(complexData)), promtest.ToFloat64(metrics.regionBytes))

	// Queries see the loaded data.
	e := NewEngine(store)
	p := cellCenter(2048+3, 3, 0)
	assert.Equal(t, NSWEEast, e.GetNSWE(p.X, p.Y, 0))
	q := cellCenter(100, 100, 0)
	assert.Equal(t, int32(500), e.GetHeight(q.X, q.Y, 0))
}

func TestLoad_MissingManifest(t *testing.T) {
	logger, logs := testutil.NewRecordingLogger()
	store := NewRegionStore(logger, nil)

	require.NoError(t, store.Load(context.Background(), LoadOptions{Dir: t.TempDir()}))
	assert.False(t, store.Loaded())
	assert.Equal(t, 1, logs.Count(slog.LevelWarn))

	// Fully open world.
	e := NewEngine(store)
	assert.Equal(t, int32(33), e.GetHeight(0, 0, 33))
	assert.True(t, e.CanMoveToTarget(0, 0, 0, 5000, 5000, 0))
}

func TestLoad_EmptyManifest(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteManifest(t, dir)

	store := NewRegionStore(nil, nil)
	require.NoError(t, store.Load(context.Background(), LoadOptions{Dir: dir}))
	assert.False(t, store.Loaded())
}

func TestLoad_ExplicitManifestPath(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteRegionFile(t, dir, 20, 20, testutil.FlatRegion(0))
	manifest := filepath.Join(t.TempDir(), "custom.txt")
	require.NoError(t, os.WriteFile(manifest, []byte("20_20\n"), 0o644))

	store := NewRegionStore(nil, nil)
	require.NoError(t, store.Load(context.Background(), LoadOptions{Dir: dir, Manifest: manifest}))
	assert.NotNil(t, store.Region(20, 20))
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
	}{
		{
			name: "malformed manifest line",
			setup: func(t *testing.T, dir string) {
				testutil.WriteManifest(t, dir, "16_10", "garbage")
			},
		},
		{
			name: "entry outside the grid",
			setup: func(t *testing.T, dir string) {
				testutil.WriteManifest(t, dir, "40_10")
			},
		},
		{
			name: "missing region file",
			setup: func(t *testing.T, dir string) {
				testutil.WriteManifest(t, dir, "16_10")
			},
		},
		{
			name: "truncated region",
			setup: func(t *testing.T, dir string) {
				testutil.WriteRegionFile(t, dir, 16, 10, make([]byte, 100))
				testutil.WriteManifest(t, dir, "16_10")
			},
		},
		{
			name: "empty region file",
			setup: func(t *testing.T, dir string) {
				testutil.WriteRegionFile(t, dir, 16, 10, nil)
				testutil.WriteManifest(t, dir, "16_10")
			},
		},
		{
			name: "corrupt indexed region",
			setup: func(t *testing.T, dir string) {
				data := testutil.NewRegionBuilder().
					Complex(0, testutil.UniformCells(0)).
					Raw(9, []byte{byte(BlockMultilayer), 0}).
					Bytes()
				testutil.WriteRegionFile(t, dir, 16, 10, testutil.FlatRegion(0))
				testutil.WriteRegionFile(t, dir, 16, 11, data)
				testutil.WriteManifest(t, dir, "16_10", "16_11")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			store := NewRegionStore(nil, nil)
			t.Cleanup(func() { _ = store.Close() })

			err := store.Load(context.Background(), LoadOptions{Dir: dir, Workers: 4})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDatasetLoad)
		})
	}
}

func TestLoad_CompressedRegion(t *testing.T) {
	dir := t.TempDir()
	data := complexWithCell(1, 1, 800, NSWESouth)
	testutil.WriteCompressedRegionFile(t, dir, 16, 10, data)
	testutil.WriteManifest(t, dir, "16_10")

	store := NewRegionStore(nil, nil)
	require.NoError(t, store.Load(context.Background(), LoadOptions{Dir: dir, Checksums: true}))

	r := store.Region(16, 10)
	require.NotNil(t, r)
	assert.Equal(t, len(data), r.Size())

	sum := blake2b.Sum256(data)
	assert.Equal(t, sum[:], r.Digest())

	e := NewEngine(store)
	p := cellCenter(1, 1, 0)
	assert.Equal(t, int32(800), e.GetHeight(p.X, p.Y, 0))
	assert.Equal(t, NSWESouth, e.GetNSWE(p.X, p.Y, 0))
}

func TestReadCompressed_Limit(t *testing.T) {
	data := testutil.FlatRegion(0)
	path := testutil.WriteCompressedRegionFile(t, t.TempDir(), 16, 10, data)

	got, err := readCompressed(path, 1<<20)
	require.NoError(t, err)
	assert.Len(t, got, len(data))

	_, err = readCompressed(path, 1000)
	assert.Error(t, err)
}

func TestLoad_DuplicatesAndTrailingBytes(t *testing.T) {
	dir := t.TempDir()
	data := append(complexWithCell(0, 0, 0, 0), 0xAA, 0xBB)
	testutil.WriteRegionFile(t, dir, 16, 10, data)
	testutil.WriteManifest(t, dir, "16_10", "16_10")

	logger, logs := testutil.NewRecordingLogger()
	store := NewRegionStore(logger, nil)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Load(context.Background(), LoadOptions{Dir: dir, ForceLoad: true}))
	assert.Equal(t, 1, store.Count())

	warnings := logs.Messages(slog.LevelWarn)
	assert.Contains(t, warnings, "duplicate geodata manifest entry")
	assert.Contains(t, warnings, "geodata region has trailing bytes")
}

func TestLoad_Concurrent(t *testing.T) {
	dir := t.TempDir()
	var lines []string
	for rx := 16; rx < 20; rx++ {
		for ry := 10; ry < 14; ry++ {
			testutil.WriteRegionFile(t, dir, rx, ry, testutil.FlatRegion(int16(rx*100+ry)))
			lines = append(lines, strconv.Itoa(rx)+"_"+strconv.Itoa(ry))
		}
	}
	testutil.WriteManifest(t, dir, lines...)

	store := NewRegionStore(nil, nil)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Load(context.Background(), LoadOptions{Dir: dir, Workers: 8}))
	assert.Equal(t, 16, store.Count())

	e := NewEngine(store)
	p := cellCenter(2048*2+5, 2048*3+5, 0) // region 18_13
	assert.Equal(t, int32(1813), e.GetHeight(p.X, p.Y, 0))
}

func TestLoad_Twice(t *testing.T) {
	dir := t.TempDir()
	store := NewRegionStore(nil, nil)
	require.NoError(t, store.Load(context.Background(), LoadOptions{Dir: dir}))
	assert.ErrorIs(t, store.Load(context.Background(), LoadOptions{Dir: dir}), ErrAlreadyLoaded)
}

func TestLoad_Cancelled(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteRegionFile(t, dir, 16, 10, testutil.FlatRegion(0))
	testutil.WriteManifest(t, dir, "16_10")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewRegionStore(nil, nil)
	err := store.Load(ctx, LoadOptions{Dir: dir})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, store.Loaded())
}

func TestStore_MaxLayersAndClose(t *testing.T) {
	metrics := NewMetrics(nil)
	store := NewRegionStore(nil, metrics)

	require.NoError(t, store.AddRegion(16, 10, multilayerBlock(
		testutil.PackLayer(0, NSWEAll), testutil.PackLayer(64, NSWEAll), testutil.PackLayer(128, NSWEAll),
	)))
	require.NoError(t, store.AddRegion(16, 11, multilayerBlock(testutil.PackLayer(0, NSWEAll))))
	assert.Equal(t, 3, store.MaxLayers())
	assert.Equal(t, 3.0, promtest.ToFloat64(metrics.maxLayers))

	// Replacing a region keeps the count.
	require.NoError(t, store.AddRegion(16, 11, testutil.FlatRegion(0)))
	assert.Equal(t, 2, store.Count())

	require.NoError(t, store.Close())
	assert.False(t, store.Loaded())
	assert.Nil(t, store.Region(16, 10))
	assert.Zero(t, promtest.ToFloat64(metrics.regionBytes))
}

func TestStore_AddRegionRejectsBadData(t *testing.T) {
	store := NewRegionStore(nil, nil)
	assert.ErrorIs(t, store.AddRegion(99, 0, testutil.FlatRegion(0)), ErrDatasetLoad)
	assert.ErrorIs(t, store.AddRegion(0, 0, []byte{1, 2, 3}), ErrDatasetLoad)
	assert.False(t, store.Loaded())
}
