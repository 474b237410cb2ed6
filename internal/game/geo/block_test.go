package geo

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/la2geo/internal/testutil"
)

func TestDecodeLayer(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		want Layer
	}{
		{"zero", 0x0000, Layer{Height: 0, NSWE: 0}},
		{"height 1000 open", testutil.PackLayer(1000, NSWEAll), Layer{Height: 1000, NSWE: NSWEAll}},
		{"height 104 east", testutil.PackLayer(104, NSWEEast), Layer{Height: 104, NSWE: NSWEEast}},
		{"negative", testutil.PackLayer(-3200, NSWENorth), Layer{Height: -3200, NSWE: NSWENorth}},
		{"minimum", 0x8000, Layer{Height: -16384, NSWE: 0}},
		{"maximum", 0x7FFF, Layer{Height: 16376, NSWE: NSWEAll}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeLayer(tt.raw))
		})
	}
}

func TestLayersNearest(t *testing.T) {
	raw := func(layers ...uint16) Layers {
		buf := make([]byte, 0, len(layers)*2)
		for _, l := range layers {
			buf = binary.LittleEndian.AppendUint16(buf, l)
		}
		return Layers{kind: BlockMultilayer, raw: buf, n: len(layers)}
	}

	l := raw(testutil.PackLayer(104, NSWEAll), testutil.PackLayer(1000, 0))
	assert.Equal(t, int16(104), l.Nearest(120).Height)
	assert.Equal(t, int16(1000), l.Nearest(900).Height)
	assert.Equal(t, int16(104), l.Nearest(104).Height)
	assert.Equal(t, int16(1000), l.Nearest(1000).Height)
	assert.Equal(t, byte(0), l.Nearest(1000).NSWE)

	t.Run("equal distance keeps the first layer", func(t *testing.T) {
		l := raw(testutil.PackLayer(200, NSWEEast), testutil.PackLayer(96, NSWEWest))
		got := l.Nearest(148)
		assert.Equal(t, int16(200), got.Height)
		assert.Equal(t, NSWEEast, got.NSWE)
	})

	t.Run("extreme z does not overflow", func(t *testing.T) {
		l := raw(testutil.PackLayer(-16000, 0), testutil.PackLayer(16000, NSWEAll))
		assert.Equal(t, int16(16000), l.Nearest(2147483647).Height)
		assert.Equal(t, int16(-16000), l.Nearest(-2147483648).Height)
	})

	t.Run("flat reports one open layer", func(t *testing.T) {
		l := Layers{kind: BlockFlat, flat: -500, n: 1}
		assert.Equal(t, 1, l.Len())
		assert.Equal(t, Layer{Height: -500, NSWE: NSWEAll}, l.Nearest(1000))
	})
}

func TestNewRegion_Flat(t *testing.T) {
	data := testutil.FlatRegion(-500)
	require.Len(t, data, FlatRegionSize)

	r, err := NewRegion(testRX, testRY, data, nil)
	require.NoError(t, err)
	assert.False(t, r.Indexed())
	assert.Equal(t, FlatRegionSize, r.Size())
	assert.Equal(t, 3*77, r.blockOffset(77))

	block, err := decodeBlock(r, 77)
	require.NoError(t, err)
	assert.Equal(t, BlockFlat, block.Kind())

	layers, err := block.CellLayers(CellID(7, 7))
	require.NoError(t, err)
	assert.Equal(t, int16(-500), layers.Nearest(0).Height)
}

func TestNewRegion_IndexedOffsets(t *testing.T) {
	data := testutil.NewRegionBuilder().
		Complex(0, testutil.UniformCells(testutil.PackLayer(64, NSWEAll))).
		Multilayer(1, testutil.UniformLayers(testutil.PackLayer(8, NSWEAll), testutil.PackLayer(512, NSWEAll))).
		Bytes()

	r, err := NewRegion(testRX, testRY, data, nil)
	require.NoError(t, err)
	require.True(t, r.Indexed())

	multiSize := 1 + BlockCells*(1+2*2)
	assert.Equal(t, 0, r.blockOffset(0))
	assert.Equal(t, 1+complexPayload, r.blockOffset(1))
	assert.Equal(t, 1+complexPayload+multiSize, r.blockOffset(2))
	assert.Equal(t, 1+complexPayload+multiSize+3*(RegionBlocks-3), r.blockOffset(RegionBlocks-1))
	assert.Equal(t, 2, r.MaxLayers())
	assert.Equal(t, 0, r.trailing)
}

func TestNewRegion_Errors(t *testing.T) {
	valid := testutil.FlatRegion(0)

	tests := []struct {
		name   string
		rx, ry int32
		data   []byte
	}{
		{"region outside grid", 32, 10, valid},
		{"negative region", -1, 10, valid},
		{"truncated", testRX, testRY, valid[:FlatRegionSize-1]},
		{"empty", testRX, testRY, nil},
		{
			"unknown block tag",
			testRX, testRY,
			testutil.NewRegionBuilder().
				Complex(0, testutil.UniformCells(0)).
				Raw(1, []byte{7, 0, 0}).
				Bytes(),
		},
		{
			"invalid layer count",
			testRX, testRY,
			testutil.NewRegionBuilder().
				Complex(0, testutil.UniformCells(0)).
				Raw(1, append([]byte{byte(BlockMultilayer), 126}, make([]byte, 300)...)).
				Bytes(),
		},
		{
			"records run past the buffer",
			testRX, testRY,
			testutil.NewRegionBuilder().Complex(0, testutil.UniformCells(0)).Bytes()[:FlatRegionSize+10],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegion(tt.rx, tt.ry, tt.data, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDatasetLoad)
		})
	}
}

func TestNewRegion_TrailingBytes(t *testing.T) {
	data := testutil.NewRegionBuilder().Complex(0, testutil.UniformCells(0)).Bytes()
	data = append(data, 1, 2, 3)

	r, err := NewRegion(testRX, testRY, data, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, r.trailing)
}

func TestCellLayers_VariableCounts(t *testing.T) {
	var cells [BlockCells][]uint16
	for i := range cells {
		n := i%3 + 1
		for k := range n {
			cells[i] = append(cells[i], testutil.PackLayer(int16(8*(i*4+k)), byte(k)))
		}
	}
	data := testutil.NewRegionBuilder().Multilayer(0, cells).Bytes()
	r, err := NewRegion(testRX, testRY, data, nil)
	require.NoError(t, err)

	block, err := decodeBlock(r, 0)
	require.NoError(t, err)
	require.Equal(t, BlockMultilayer, block.Kind())

	for _, cell := range []int32{0, 1, 2, 10, 63} {
		layers, err := block.CellLayers(cell)
		require.NoError(t, err)
		require.Equal(t, int(cell%3)+1, layers.Len())
		for k := range layers.Len() {
			assert.Equal(t, Layer{Height: int16(8 * (int(cell)*4 + k)), NSWE: byte(k)}, layers.At(k))
		}
	}
}

func TestCellLayers_CorruptCount(t *testing.T) {
	for _, count := range []byte{0, 126, 0xFF, 0x80} {
		r, err := NewRegion(testRX, testRY, testutil.NewRegionBuilder().Raw(0, []byte{byte(BlockMultilayer), count, 0}).Bytes(), nil)
		require.NoError(t, err)
		require.False(t, r.Indexed())

		block, err := decodeBlock(r, 0)
		require.NoError(t, err)

		for _, cell := range []int32{0, 5, 63} {
			_, err := block.CellLayers(cell)
			assert.ErrorIs(t, err, ErrCorruptData, "count %d cell %d", count, cell)
		}
	}
}

func TestCellLayers_CountPastBuffer(t *testing.T) {
	// Last block of a flat-sized region claims multilayer with 125 layers.
	data := testutil.NewRegionBuilder().Raw(RegionBlocks-1, []byte{byte(BlockMultilayer), 125, 0}).Bytes()
	r, err := NewRegion(testRX, testRY, data, nil)
	require.NoError(t, err)

	block, err := decodeBlock(r, RegionBlocks-1)
	require.NoError(t, err)

	_, err = block.CellLayers(0)
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestDecodeBlock_UnknownTag(t *testing.T) {
	data := testutil.NewRegionBuilder().Raw(5, []byte{9, 0, 0}).Bytes()
	r, err := NewRegion(testRX, testRY, data, nil)
	require.NoError(t, err)

	_, err = decodeBlock(r, 5)
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestBlockKindString(t *testing.T) {
	assert.Equal(t, "flat", BlockFlat.String())
	assert.Equal(t, "complex", BlockComplex.String())
	assert.Equal(t, "multilayer", BlockMultilayer.String())
	assert.Equal(t, "unknown(0x07)", BlockKind(7).String())
}
