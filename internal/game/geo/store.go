package geo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

// LoadOptions controls how the dataset is read at startup.
type LoadOptions struct {
	// Dir holds the <rx>_<ry>.l2j region files.
	Dir string
	// Manifest lists one rx_ry entry per line. Defaults to Dir/geo_index.txt.
	Manifest string
	// ForceLoad asks the OS to page mapped regions in immediately.
	ForceLoad bool
	// Workers bounds concurrent region loads. Values below 1 mean sequential.
	Workers int
	// Checksums computes a BLAKE2b-256 digest of every region.
	Checksums bool
}

// RegionStore owns every loaded region.
// Load is the only writer; afterwards lookups are lock-free.
type RegionStore struct {
	regions   [GeoRegionsX * GeoRegionsY]atomic.Pointer[Region]
	loaded    atomic.Int32
	maxLayers atomic.Int32
	started   atomic.Bool

	logger  *slog.Logger
	metrics *Metrics
}

// NewRegionStore creates an empty store. Nil arguments fall back to
// slog.Default() and unregistered metrics.
func NewRegionStore(logger *slog.Logger, metrics *Metrics) *RegionStore {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &RegionStore{logger: logger, metrics: metrics}
}

// ManifestEntry is one region listed in the manifest.
type ManifestEntry struct {
	RX, RY int32
}

// ReadManifest parses rx_ry lines. Blank lines are ignored.
func ReadManifest(r io.Reader) ([]ManifestEntry, error) {
	var entries []ManifestEntry
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		xs, ys, ok := strings.Cut(text, "_")
		if !ok {
			return nil, fmt.Errorf("line %d: %q is not rx_ry", line, text)
		}
		rx, err := strconv.ParseInt(strings.TrimSpace(xs), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("line %d: region x: %w", line, err)
		}
		ry, err := strconv.ParseInt(strings.TrimSpace(ys), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("line %d: region y: %w", line, err)
		}
		entries = append(entries, ManifestEntry{RX: int32(rx), RY: int32(ry)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Load reads the manifest and every region it lists.
// A missing manifest leaves the store empty and is not an error.
// Any unreadable or malformed file fails the whole load.
func (s *RegionStore) Load(ctx context.Context, opts LoadOptions) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyLoaded
	}

	manifest := opts.Manifest
	if manifest == "" {
		manifest = filepath.Join(opts.Dir, "geo_index.txt")
	}

	s.logger.Info("loading geodata", "manifest", manifest, "dir", opts.Dir)
	f, err := os.Open(manifest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("geodata manifest not found, world is fully open", "manifest", manifest)
			return nil
		}
		return fmt.Errorf("%w: opening manifest %s: %w", ErrDatasetLoad, manifest, err)
	}
	entries, err := ReadManifest(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%w: reading manifest %s: %w", ErrDatasetLoad, manifest, err)
	}
	if len(entries) == 0 {
		s.logger.Warn("geodata manifest is empty, world is fully open", "manifest", manifest)
		return nil
	}

	seen := make(map[ManifestEntry]struct{}, len(entries))
	unique := entries[:0]
	for _, entry := range entries {
		if !ValidRegion(entry.RX, entry.RY) {
			return fmt.Errorf("%w: manifest entry %d_%d outside %dx%d grid",
				ErrDatasetLoad, entry.RX, entry.RY, GeoRegionsX, GeoRegionsY)
		}
		if _, dup := seen[entry]; dup {
			s.logger.Warn("duplicate geodata manifest entry", "rx", entry.RX, "ry", entry.RY)
			continue
		}
		seen[entry] = struct{}{}
		unique = append(unique, entry)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for _, entry := range unique {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.loadRegionFile(opts, entry.RX, entry.RY)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("geodata loaded", "regions", s.loaded.Load(), "dir", opts.Dir)
	return nil
}

func (s *RegionStore) loadRegionFile(opts LoadOptions, rx, ry int32) error {
	name := fmt.Sprintf("%d_%d.l2j", rx, ry)
	path := filepath.Join(opts.Dir, name)

	data, release, err := mapFile(path, opts.ForceLoad)
	if errors.Is(err, fs.ErrNotExist) {
		path += ".zst"
		data, err = readCompressed(path, maxRegionFileSize)
	}
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrDatasetLoad, name, err)
	}

	region, err := NewRegion(rx, ry, data, release)
	if err != nil {
		if release != nil {
			_ = release()
		}
		return fmt.Errorf("parsing geodata %s: %w", name, err)
	}
	if opts.Checksums {
		sum := blake2b.Sum256(data)
		region.digest = sum[:]
	}

	s.publish(region)

	attrs := []any{
		"file", path,
		"region_offset", region.Offset(),
		"size", region.Size(),
		"indexed", region.Indexed(),
		"max_layers", region.MaxLayers(),
	}
	if region.digest != nil {
		attrs = append(attrs, "blake2b", fmt.Sprintf("%x", region.digest))
	}
	s.logger.Info("geodata region loaded", attrs...)
	if region.trailing > 0 {
		s.logger.Warn("geodata region has trailing bytes", "file", path, "bytes", region.trailing)
	}
	return nil
}

// maxRegionFileSize bounds a decompressed region. NewRegion rejects anything
// past math.MaxInt32 anyway.
const maxRegionFileSize = math.MaxInt32 + 1

// readCompressed decodes a zstd region file, failing once the output grows
// past limit bytes.
func readCompressed(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f, zstd.WithDecoderMaxMemory(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(io.LimitReader(dec, limit+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("decompressing %s: output exceeds %d bytes", path, limit)
	}
	return data, nil
}

// AddRegion validates a region buffer and publishes it. Load-phase only.
func (s *RegionStore) AddRegion(rx, ry int32, data []byte) error {
	region, err := NewRegion(rx, ry, data, nil)
	if err != nil {
		return err
	}
	s.publish(region)
	return nil
}

// publish makes a fully indexed region visible to queries.
func (s *RegionStore) publish(r *Region) {
	if old := s.regions[r.Offset()].Swap(r); old != nil {
		s.metrics.regionBytes.Sub(float64(old.Size()))
		_ = old.Close()
	} else {
		s.loaded.Add(1)
		s.metrics.regionsLoaded.Inc()
	}
	s.metrics.regionBytes.Add(float64(r.Size()))

	n := int32(r.MaxLayers())
	for {
		top := s.maxLayers.Load()
		if n <= top {
			return
		}
		if s.maxLayers.CompareAndSwap(top, n) {
			s.metrics.maxLayers.Set(float64(n))
			return
		}
	}
}

// MaxLayers returns the largest layer count across loaded regions.
func (s *RegionStore) MaxLayers() int {
	return int(s.maxLayers.Load())
}

// Loaded reports whether any region is present.
func (s *RegionStore) Loaded() bool {
	return s.loaded.Load() > 0
}

// Count returns the number of loaded regions.
func (s *RegionStore) Count() int {
	return int(s.loaded.Load())
}

// Region returns the region at dataset coordinates, or nil.
func (s *RegionStore) Region(rx, ry int32) *Region {
	if !ValidRegion(rx, ry) {
		return nil
	}
	return s.regions[RegionOffset(rx, ry)].Load()
}

// RegionFor returns the region owning the geo cell.
// A false result means the cell has no geodata.
func (s *RegionStore) RegionFor(geoX, geoY int32) (*Region, bool) {
	r := s.Region(RegionXY(geoX, geoY))
	return r, r != nil
}

// Regions returns the loaded regions ordered by region offset.
func (s *RegionStore) Regions() []*Region {
	out := make([]*Region, 0, s.Count())
	for i := range s.regions {
		if r := s.regions[i].Load(); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Close releases every region buffer. No query may run afterwards.
func (s *RegionStore) Close() error {
	var errs []error
	for i := range s.regions {
		if r := s.regions[i].Swap(nil); r != nil {
			if err := r.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing region %d_%d: %w", r.rx, r.ry, err))
			}
		}
	}
	s.loaded.Store(0)
	s.metrics.regionsLoaded.Set(0)
	s.metrics.regionBytes.Set(0)
	return errors.Join(errs...)
}
