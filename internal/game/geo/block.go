package geo

import (
	"encoding/binary"
	"fmt"
)

// BlockKind is the 1-byte type tag that starts every block record.
type BlockKind byte

// Block type identifiers in .l2j binary format.
const (
	BlockFlat       BlockKind = 0x00
	BlockComplex    BlockKind = 0x01
	BlockMultilayer BlockKind = 0x02
)

func (k BlockKind) String() string {
	switch k {
	case BlockFlat:
		return "flat"
	case BlockComplex:
		return "complex"
	case BlockMultilayer:
		return "multilayer"
	default:
		return fmt.Sprintf("unknown(0x%02X)", byte(k))
	}
}

// Record payload sizes, excluding the type tag.
const (
	flatPayload    = 2
	complexPayload = BlockCells * 2
)

// Layer is one floor reading at a cell.
type Layer struct {
	Height int16
	NSWE   byte
}

// decodeLayer unpacks a raw cell value.
// Bit packing: [15:4] = height*2 (signed), [3:0] = NSWE mask.
func decodeLayer(raw uint16) Layer {
	return Layer{
		Height: int16(raw&layerHeightMask) >> 1,
		NSWE:   byte(raw & layerNSWEMask),
	}
}

// BlockView is a zero-copy view over one block record.
// data starts right after the type tag and runs to the end of the region buffer.
type BlockView struct {
	kind BlockKind
	data []byte
}

// Kind returns the block type.
func (b BlockView) Kind() BlockKind { return b.kind }

// decodeBlock reads the record of blockID inside the region buffer.
func decodeBlock(r *Region, blockID int32) (BlockView, error) {
	off := r.blockOffset(blockID)
	if off < 0 || off >= len(r.data) {
		return BlockView{}, fmt.Errorf("%w: block %d offset %d outside buffer of %d bytes",
			ErrCorruptData, blockID, off, len(r.data))
	}

	v := BlockView{kind: BlockKind(r.data[off]), data: r.data[off+1:]}
	switch v.kind {
	case BlockFlat:
		if len(v.data) < flatPayload {
			return BlockView{}, fmt.Errorf("%w: flat block %d truncated", ErrCorruptData, blockID)
		}
	case BlockComplex:
		if len(v.data) < complexPayload {
			return BlockView{}, fmt.Errorf("%w: complex block %d truncated", ErrCorruptData, blockID)
		}
	case BlockMultilayer:
		// Validated lazily per cell.
	default:
		return BlockView{}, fmt.Errorf("%w: unknown block type %s at block %d", ErrCorruptData, v.kind, blockID)
	}
	return v, nil
}

// CellLayers returns the layers stored for cellID (0-63).
func (b BlockView) CellLayers(cellID int32) (Layers, error) {
	if cellID < 0 || cellID >= BlockCells {
		return Layers{}, fmt.Errorf("%w: cell %d out of range", ErrCorruptData, cellID)
	}

	switch b.kind {
	case BlockFlat:
		return Layers{kind: BlockFlat, flat: int16(binary.LittleEndian.Uint16(b.data)), n: 1}, nil

	case BlockComplex:
		off := int(cellID) * 2
		return Layers{kind: BlockComplex, raw: b.data[off : off+2], n: 1}, nil

	case BlockMultilayer:
		off := 0
		for c := int32(0); c < cellID; c++ {
			n, err := layerCount(b.data, off, c)
			if err != nil {
				return Layers{}, err
			}
			off += n*2 + 1
		}
		n, err := layerCount(b.data, off, cellID)
		if err != nil {
			return Layers{}, err
		}
		end := off + 1 + n*2
		if end > len(b.data) {
			return Layers{}, fmt.Errorf("%w: cell %d layers end at %d beyond %d bytes",
				ErrCorruptData, cellID, end, len(b.data))
		}
		return Layers{kind: BlockMultilayer, raw: b.data[off+1 : end], n: n}, nil
	}

	return Layers{}, fmt.Errorf("%w: unknown block type %s", ErrCorruptData, b.kind)
}

func layerCount(data []byte, off int, cellID int32) (int, error) {
	if off >= len(data) {
		return 0, fmt.Errorf("%w: cell %d header at %d beyond %d bytes", ErrCorruptData, cellID, off, len(data))
	}
	n := int(int8(data[off]))
	if n < MinLayers || n > MaxLayers {
		return 0, fmt.Errorf("%w: invalid layer count %d at cell %d", ErrCorruptData, n, cellID)
	}
	return n, nil
}

// Layers is the sequence of floors stored at one cell.
type Layers struct {
	kind BlockKind
	raw  []byte
	flat int16
	n    int
}

// Kind returns the type of the block the layers came from.
func (l Layers) Kind() BlockKind { return l.kind }

// Len returns the number of layers.
func (l Layers) Len() int { return l.n }

// At returns layer i. Flat blocks report one fully passable layer.
func (l Layers) At(i int) Layer {
	if l.kind == BlockFlat {
		return Layer{Height: l.flat, NSWE: NSWEAll}
	}
	return decodeLayer(binary.LittleEndian.Uint16(l.raw[i*2:]))
}

// Nearest returns the layer whose height minimises (z-height)².
// Among equally distant layers the first one enumerated wins.
func (l Layers) Nearest(z int32) Layer {
	best := l.At(0)
	bestDist := sqDist(z, best.Height)
	for i := 1; i < l.n; i++ {
		layer := l.At(i)
		if d := sqDist(z, layer.Height); d < bestDist {
			best, bestDist = layer, d
		}
	}
	return best
}

func sqDist(z int32, h int16) int64 {
	d := int64(z) - int64(h)
	return d * d
}
