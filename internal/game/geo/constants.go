package geo

// World coordinate boundaries (region 16_10 origin).
const (
	MapMinX = -131072
	MapMinY = -262144
)

// Grid-relative region index → dataset region coordinate.
const (
	RegionOffsetX = 16
	RegionOffsetY = 10
)

// GeoEngine grid dimensions.
const (
	GeoRegionsX      = 32
	GeoRegionsY      = 32
	RegionBlocksX    = 256
	RegionBlocksY    = 256
	RegionBlocks     = RegionBlocksX * RegionBlocksY // 65536
	BlockCellsX      = 8
	BlockCellsY      = 8
	BlockCells       = BlockCellsX * BlockCellsY // 64
	RegionCellsShift = 11                        // 256 blocks * 8 cells = 2048
	CoordinateShift  = 4                         // 1 geo cell = 16 world units
	CoordinateOffset = 8
)

// FlatRegionSize is the byte size of a region whose blocks are all flat.
// Larger files carry variable-length blocks and need a block index.
const FlatRegionSize = RegionBlocks * 3 // 196608

// NSWE direction bitmask constants.
// 4-bit mask for cell movement permissions.
const (
	NSWEEast  byte = 1 << 0 // 0x01
	NSWEWest  byte = 1 << 1 // 0x02
	NSWESouth byte = 1 << 2 // 0x04
	NSWENorth byte = 1 << 3 // 0x08
	NSWEAll   byte = 0x0F
)

// Composite NSWE directions.
const (
	NSWENorthEast = NSWENorth | NSWEEast // 0x09
	NSWENorthWest = NSWENorth | NSWEWest // 0x0A
	NSWESouthEast = NSWESouth | NSWEEast // 0x05
	NSWESouthWest = NSWESouth | NSWEWest // 0x06
)

// Layer encoding.
const (
	layerHeightMask uint16 = 0xFFF0
	layerNSWEMask   uint16 = 0x000F
	MinLayers              = 1
	MaxLayers              = 125
)

// Query limits and sanity bands.
const (
	MaxSightDistance     = 300 // geo cells
	MaxLayerSightDelta   = 32
	SpawnLayerTolerance  = 150
	SpawnGlobalTolerance = 600
)

// Pathfinding configuration.
const (
	MaxPathfindIterations = 7000
	PathZTolerance        = 64

	// A* weights.
	WeightLow      = 0.5
	WeightHigh     = 3.0
	WeightDiagonal = 0.707 // sqrt(2)/2
)
