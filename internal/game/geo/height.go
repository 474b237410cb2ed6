package geo

// GetHeight returns the geodata Z height at world (x, y, z).
// Multilayer cells resolve to the layer nearest z.
// Returns worldZ unchanged if no geodata is loaded for this position.
func (e *Engine) GetHeight(worldX, worldY, worldZ int32) int32 {
	e.metrics.queries[opHeight].Inc()
	l := lookup{op: opHeight}
	defer e.flush(&l)
	return e.nearestZ(&l, GeoX(worldX), GeoY(worldY), worldZ)
}

// nearestZ is GetHeight in geo coordinates.
func (e *Engine) nearestZ(l *lookup, geoX, geoY, worldZ int32) int32 {
	layers, res := e.cellLayers(l, geoX, geoY)
	if res != lookupOK {
		return worldZ
	}
	return int32(layers.Nearest(worldZ).Height)
}

// GetSpawnHeight returns the height an NPC spawned at (x, y) with the given
// spawn-list band should stand on. The layer nearest zmin wins.
// Results far outside [zmin, zmax] are logged but still returned: geodata
// is trusted over the spawn list.
func (e *Engine) GetSpawnHeight(worldX, worldY, zmin, zmax int32, spawnID int32) int32 {
	e.metrics.queries[opSpawnHeight].Inc()
	gx, gy := GeoX(worldX), GeoY(worldY)

	l := lookup{op: opSpawnHeight}
	defer e.flush(&l)
	layers, res := e.cellLayers(&l, gx, gy)
	if res != lookupOK {
		return zmin
	}

	h := int32(layers.Nearest(zmin).Height)
	if layers.Kind() == BlockMultilayer && outsideBand(h, zmin, zmax, SpawnLayerTolerance) {
		e.metrics.spawnRange.Inc()
		e.logger.Warn("spawn height: no layer matches spawn band, geodata or spawnlist bug",
			"zmin", zmin, "zmax", zmax, "value", h, "spawn_id", spawnID,
			"geo_x", gx, "geo_y", gy)
		return h
	}
	if outsideBand(h, zmin, zmax, SpawnGlobalTolerance) {
		e.metrics.spawnRange.Inc()
		e.logger.Warn("spawn height: spawnlist z value is wrong or geodata error",
			"zmin", zmin, "zmax", zmax, "value", h, "spawn_id", spawnID,
			"geo_x", gx, "geo_y", gy)
	}
	return h
}

func outsideBand(h, zmin, zmax, tolerance int32) bool {
	return h > zmax+tolerance || h < zmin-tolerance
}

// GetNSWE returns the NSWE mask of the layer nearest z at world (x, y).
// Unmapped, flat and corrupt cells report NSWEAll.
func (e *Engine) GetNSWE(worldX, worldY, worldZ int32) byte {
	e.metrics.queries[opNSWE].Inc()
	l := lookup{op: opNSWE}
	defer e.flush(&l)
	return e.nsweAt(&l, GeoX(worldX), GeoY(worldY), worldZ)
}

func (e *Engine) nsweAt(l *lookup, geoX, geoY, worldZ int32) byte {
	layers, res := e.cellLayers(l, geoX, geoY)
	if res != lookupOK {
		return NSWEAll
	}
	return layers.Nearest(worldZ).NSWE
}
