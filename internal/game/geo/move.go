package geo

// MoveCheck walks the straight line from (x,y,z) to (tx,ty,tz) and returns
// the farthest reachable point. When a cell crossing is blocked the result is
// the centre of the last cell reached, at the interpolated altitude; otherwise
// it is the destination itself.
func (e *Engine) MoveCheck(x, y, z, tx, ty, tz int32) Point3D {
	e.metrics.queries[opMove].Inc()
	l := lookup{op: opMove}
	defer e.flush(&l)
	return e.moveCheck(&l, x, y, z, tx, ty, tz)
}

func (e *Engine) moveCheck(l *lookup, x, y, z, tx, ty, tz int32) Point3D {
	dest := Point3D{X: tx, Y: ty, Z: tz}
	if !e.store.Loaded() {
		return dest
	}

	r := newRay(GeoX(x), GeoY(y), z, GeoX(tx), GeoY(ty), tz)
	for r.next() {
		if !e.canMoveNext(l, r.lastX, r.lastY, r.stepZ(), r.curX, r.curY, tz) {
			e.metrics.moveClamped.Inc()
			return Point3D{X: WorldX(r.lastX), Y: WorldY(r.lastY), Z: r.stepZ()}
		}
	}
	if r.aborted {
		e.metrics.moveClamped.Inc()
		e.logger.Warn("geo engine: move raycast exceeded step budget",
			"from_x", x, "from_y", y, "to_x", tx, "to_y", ty, "steps", r.iterations)
		return Point3D{X: WorldX(r.curX), Y: WorldY(r.curY), Z: r.stepZ()}
	}
	return dest
}

// CanMoveToTarget reports whether direct movement from (x1,y1,z1) to
// (x2,y2,z2) reaches the destination without being clamped.
func (e *Engine) CanMoveToTarget(x1, y1, z1, x2, y2, z2 int32) bool {
	return e.MoveCheck(x1, y1, z1, x2, y2, z2) == Point3D{X: x2, Y: y2, Z: z2}
}

// canMoveNext checks a single crossing from cell (x,y) to (tx,ty).
// The cell being left decides: its layer nearest z must allow the direction,
// and on stacked floors that layer must also be the one nearest the target
// altitude tz.
func (e *Engine) canMoveNext(l *lookup, x, y, z, tx, ty, tz int32) bool {
	layers, res := e.cellLayers(l, x, y)
	switch res {
	case lookupUnmapped:
		return true
	case lookupCorrupt:
		return false
	}

	step := layers.Nearest(z)
	if layers.Kind() == BlockMultilayer && layers.Nearest(tz).Height != step.Height {
		return false
	}
	return CheckNSWE(step.NSWE, x, y, tx, ty)
}
