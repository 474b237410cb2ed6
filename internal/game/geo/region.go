package geo

import (
	"fmt"
	"math"
)

// Region is one loaded .l2j region: an immutable little-endian buffer holding
// 256×256 block records, plus a block index when records are variable-length.
// Created once at load time, never mutated afterwards.
type Region struct {
	rx, ry    int32
	data      []byte
	index     *[RegionBlocks]int32 // nil when every block is flat-sized
	maxLayers int
	trailing  int
	digest    []byte
	release   func() error
}

// NewRegion validates data as a region file and builds its block index when
// the buffer is larger than an all-flat region. release, if non-nil, is called
// by Close to unmap the buffer.
func NewRegion(rx, ry int32, data []byte, release func() error) (*Region, error) {
	if !ValidRegion(rx, ry) {
		return nil, fmt.Errorf("%w: region %d_%d outside %dx%d grid", ErrDatasetLoad, rx, ry, GeoRegionsX, GeoRegionsY)
	}
	if len(data) < FlatRegionSize {
		return nil, fmt.Errorf("%w: region %d_%d has %d bytes, need at least %d",
			ErrDatasetLoad, rx, ry, len(data), FlatRegionSize)
	}
	if len(data) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: region %d_%d too large (%d bytes)", ErrDatasetLoad, rx, ry, len(data))
	}

	r := &Region{rx: rx, ry: ry, data: data, release: release}
	if len(data) > FlatRegionSize {
		if err := r.buildIndex(); err != nil {
			return nil, fmt.Errorf("%w: region %d_%d: %w", ErrDatasetLoad, rx, ry, err)
		}
	}
	return r, nil
}

// buildIndex scans the buffer once, recording where each block starts.
func (r *Region) buildIndex() error {
	index := new([RegionBlocks]int32)
	data := r.data
	cursor := 0

	for block := range RegionBlocks {
		if cursor >= len(data) {
			return fmt.Errorf("unexpected end of data at block %d", block)
		}
		index[block] = int32(cursor)
		kind := BlockKind(data[cursor])
		cursor++

		switch kind {
		case BlockFlat:
			cursor += flatPayload
		case BlockComplex:
			cursor += complexPayload
		case BlockMultilayer:
			for cell := range BlockCells {
				n, err := layerCount(data, cursor, int32(cell))
				if err != nil {
					return fmt.Errorf("block %d: %w", block, err)
				}
				r.maxLayers = max(r.maxLayers, n)
				cursor += n*2 + 1
			}
		default:
			return fmt.Errorf("unknown block type %s at block %d offset %d", kind, block, cursor-1)
		}
	}

	if cursor > len(data) {
		return fmt.Errorf("last block ends at %d beyond %d bytes", cursor, len(data))
	}
	r.trailing = len(data) - cursor
	r.index = index
	return nil
}

// blockOffset returns the byte offset of blockID's record.
func (r *Region) blockOffset(blockID int32) int {
	if r.index != nil {
		return int(r.index[blockID])
	}
	return int(blockID) * 3
}

// RX returns the dataset region X coordinate.
func (r *Region) RX() int32 { return r.rx }

// RY returns the dataset region Y coordinate.
func (r *Region) RY() int32 { return r.ry }

// Offset returns the region table slot.
func (r *Region) Offset() int32 { return RegionOffset(r.rx, r.ry) }

// Size returns the buffer size in bytes.
func (r *Region) Size() int { return len(r.data) }

// Indexed reports whether the region carries a block index.
func (r *Region) Indexed() bool { return r.index != nil }

// MaxLayers returns the largest layer count seen while indexing.
func (r *Region) MaxLayers() int { return r.maxLayers }

// Digest returns the BLAKE2b-256 digest of the buffer, if computed at load.
func (r *Region) Digest() []byte { return r.digest }

// Close releases the underlying buffer.
func (r *Region) Close() error {
	if r.release == nil {
		return nil
	}
	release := r.release
	r.release = nil
	return release()
}
