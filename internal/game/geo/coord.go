package geo

// Point3D represents a 3D coordinate in world space.
type Point3D struct {
	X, Y, Z int32
}

// GeoX converts world X coordinate to geodata X.
func GeoX(worldX int32) int32 {
	return (worldX - MapMinX) >> CoordinateShift
}

// GeoY converts world Y coordinate to geodata Y.
func GeoY(worldY int32) int32 {
	return (worldY - MapMinY) >> CoordinateShift
}

// WorldX converts geodata X to world X (centered in cell).
func WorldX(geoX int32) int32 {
	return geoX<<CoordinateShift + MapMinX + CoordinateOffset
}

// WorldY converts geodata Y to world Y (centered in cell).
func WorldY(geoY int32) int32 {
	return geoY<<CoordinateShift + MapMinY + CoordinateOffset
}

// RegionXY returns dataset region coordinates for geo coordinates.
func RegionXY(geoX, geoY int32) (int32, int32) {
	return geoX>>RegionCellsShift + RegionOffsetX, geoY>>RegionCellsShift + RegionOffsetY
}

// RegionOffset packs dataset region coordinates into a region table slot.
func RegionOffset(rx, ry int32) int32 {
	return rx<<5 + ry
}

// ValidRegion reports whether dataset region coordinates address a table slot.
func ValidRegion(rx, ry int32) bool {
	return rx >= 0 && rx < GeoRegionsX && ry >= 0 && ry < GeoRegionsY
}

// BlockOf returns the block index (0-255) along one axis.
func BlockOf(geoPos int32) int32 {
	return (geoPos >> 3) & (RegionBlocksX - 1)
}

// CellOf returns the cell index (0-7) along one axis.
func CellOf(geoPos int32) int32 {
	return geoPos & (BlockCellsX - 1)
}

// BlockID combines per-axis block indices into a region block id.
func BlockID(blockX, blockY int32) int32 {
	return blockX<<8 + blockY
}

// CellID combines per-axis cell indices into a block cell id (0-63).
func CellID(cellX, cellY int32) int32 {
	return cellX<<3 + cellY
}

// Address is the fully resolved dataset location of a geo cell.
type Address struct {
	RX, RY         int32
	BlockX, BlockY int32
	CellX, CellY   int32
}

// AddressOf resolves geo coordinates to region, block and cell indices.
func AddressOf(geoX, geoY int32) Address {
	rx, ry := RegionXY(geoX, geoY)
	return Address{
		RX:     rx,
		RY:     ry,
		BlockX: BlockOf(geoX),
		BlockY: BlockOf(geoY),
		CellX:  CellOf(geoX),
		CellY:  CellOf(geoY),
	}
}

// RegionOffset returns the region table slot of the address.
func (a Address) RegionOffset() int32 { return RegionOffset(a.RX, a.RY) }

// BlockID returns the block id within the region.
func (a Address) BlockID() int32 { return BlockID(a.BlockX, a.BlockY) }

// CellID returns the cell id within the block.
func (a Address) CellID() int32 { return CellID(a.CellX, a.CellY) }

// ComputeNSWE computes the NSWE direction from (fromX,fromY) to (toX,toY).
func ComputeNSWE(fromX, fromY, toX, toY int32) byte {
	var nswe byte
	if toX > fromX {
		nswe |= NSWEEast
	} else if toX < fromX {
		nswe |= NSWEWest
	}
	if toY > fromY {
		nswe |= NSWESouth
	} else if toY < fromY {
		nswe |= NSWENorth
	}
	return nswe
}

// CheckNSWE reports whether the mask permits a step from (x,y) to (tx,ty).
// A diagonal step needs both of its cardinal bits.
func CheckNSWE(nswe byte, x, y, tx, ty int32) bool {
	if nswe == NSWEAll {
		return true
	}
	dir := ComputeNSWE(x, y, tx, ty)
	return nswe&dir == dir
}
