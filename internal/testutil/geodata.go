package testutil

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

// Размеры формата .l2j, продублированы чтобы не импортировать geo (import cycle).
const (
	regionBlocks = 256 * 256
	blockCells   = 64
)

// GeoBlock tags.
const (
	tagFlat       = 0
	tagComplex    = 1
	tagMultilayer = 2
)

// RegionBuilder собирает бинарный .l2j регион для тестов.
// По умолчанию все блоки flat с высотой 0.
type RegionBuilder struct {
	blocks [regionBlocks][]byte
}

// NewRegionBuilder создаёт регион из flat блоков высоты 0.
func NewRegionBuilder() *RegionBuilder {
	b := &RegionBuilder{}
	for i := range b.blocks {
		b.blocks[i] = flatRecord(0)
	}
	return b
}

// FlatRegion возвращает регион, где каждый блок flat с заданной высотой.
func FlatRegion(height int16) []byte {
	b := &RegionBuilder{}
	for i := range b.blocks {
		b.blocks[i] = flatRecord(height)
	}
	return b.Bytes()
}

// Flat задаёт flat блок.
func (b *RegionBuilder) Flat(blockID int, height int16) *RegionBuilder {
	b.blocks[blockID] = flatRecord(height)
	return b
}

// Complex задаёт complex блок: одно значение слоя на ячейку.
func (b *RegionBuilder) Complex(blockID int, cells [blockCells]uint16) *RegionBuilder {
	rec := make([]byte, 1+blockCells*2)
	rec[0] = tagComplex
	for i, v := range cells {
		binary.LittleEndian.PutUint16(rec[1+i*2:], v)
	}
	b.blocks[blockID] = rec
	return b
}

// Multilayer задаёт multilayer блок. Каждая ячейка должна иметь 1..125 слоёв.
func (b *RegionBuilder) Multilayer(blockID int, cells [blockCells][]uint16) *RegionBuilder {
	rec := []byte{tagMultilayer}
	for _, layers := range cells {
		rec = append(rec, byte(len(layers)))
		for _, v := range layers {
			rec = binary.LittleEndian.AppendUint16(rec, v)
		}
	}
	b.blocks[blockID] = rec
	return b
}

// Raw подставляет произвольную запись блока (для повреждённых данных).
func (b *RegionBuilder) Raw(blockID int, record []byte) *RegionBuilder {
	b.blocks[blockID] = append([]byte(nil), record...)
	return b
}

// Bytes сериализует все 65536 записей подряд.
func (b *RegionBuilder) Bytes() []byte {
	size := 0
	for _, rec := range b.blocks {
		size += len(rec)
	}
	out := make([]byte, 0, size)
	for _, rec := range b.blocks {
		out = append(out, rec...)
	}
	return out
}

func flatRecord(height int16) []byte {
	rec := []byte{tagFlat, 0, 0}
	binary.LittleEndian.PutUint16(rec[1:], uint16(height))
	return rec
}

// PackLayer кодирует слой: высота (кратная 8) в битах 15..4, NSWE в битах 3..0.
func PackLayer(height int16, nswe byte) uint16 {
	return uint16(height<<1)&0xFFF0 | uint16(nswe&0x0F)
}

// UniformCells возвращает 64 одинаковых значения ячеек.
func UniformCells(v uint16) [blockCells]uint16 {
	var cells [blockCells]uint16
	for i := range cells {
		cells[i] = v
	}
	return cells
}

// UniformLayers возвращает 64 ячейки с одинаковым набором слоёв.
func UniformLayers(layers ...uint16) [blockCells][]uint16 {
	var cells [blockCells][]uint16
	for i := range cells {
		cells[i] = layers
	}
	return cells
}

// WriteRegionFile пишет регион как <rx>_<ry>.l2j в dir.
func WriteRegionFile(tb testing.TB, dir string, rx, ry int, data []byte) string {
	tb.Helper()

	path := filepath.Join(dir, fmt.Sprintf("%d_%d.l2j", rx, ry))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("writing region file: %v", err)
	}
	return path
}

// WriteCompressedRegionFile пишет регион как <rx>_<ry>.l2j.zst в dir.
func WriteCompressedRegionFile(tb testing.TB, dir string, rx, ry int, data []byte) string {
	tb.Helper()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		tb.Fatalf("creating zstd encoder: %v", err)
	}
	defer enc.Close()

	path := filepath.Join(dir, fmt.Sprintf("%d_%d.l2j.zst", rx, ry))
	if err := os.WriteFile(path, enc.EncodeAll(data, nil), 0o644); err != nil {
		tb.Fatalf("writing compressed region file: %v", err)
	}
	return path
}

// WriteManifest пишет geo_index.txt в dir, по одной строке на запись.
func WriteManifest(tb testing.TB, dir string, lines ...string) string {
	tb.Helper()

	path := filepath.Join(dir, "geo_index.txt")
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		tb.Fatalf("writing manifest: %v", err)
	}
	return path
}
