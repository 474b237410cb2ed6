package geo

import (
	"fmt"
	"math"
)

// headingScale converts radians to the 65536-step client heading.
const headingScale = 10430.378350470452724949566316381

// CanSeeTarget checks line of sight between two world positions.
// Beyond MaxSightDistance geo cells sight is always blocked.
func (e *Engine) CanSeeTarget(x1, y1, z1, x2, y2, z2 int32) bool {
	e.metrics.queries[opSight].Inc()
	ok := e.canSee(nil, GeoX(x1), GeoY(y1), z1, GeoX(x2), GeoY(y2), z2)
	if !ok {
		e.metrics.sightBlocked.Inc()
	}
	return ok
}

// CanSeeObject checks line of sight between two positioned objects.
func (e *Engine) CanSeeObject(observer, target Positioned) bool {
	a, b := observer.Position(), target.Position()
	return e.CanSeeTarget(a.X, a.Y, a.Z, b.X, b.Y, b.Z)
}

// CanSeeTargetDebug runs the CanSeeObject predicate from gm to target and
// reports the heading and raycast trace to gm.
func (e *Engine) CanSeeTargetDebug(gm DebugViewer, target Positioned) bool {
	e.metrics.queries[opSight].Inc()
	a, b := gm.Position(), target.Position()
	ok := e.canSee(gm, GeoX(a.X), GeoY(a.Y), a.Z, GeoX(b.X), GeoY(b.Y), b.Z)
	if !ok {
		e.metrics.sightBlocked.Inc()
	}
	return ok
}

// canSee walks the line in geo space. A non-nil dbg receives the trace and
// enables the crossing-count guard.
func (e *Engine) canSee(dbg Messenger, x, y, z, tx, ty, tz int32) bool {
	r := newRay(x, y, z, tx, ty, tz)
	if r.distance > MaxSightDistance {
		if dbg != nil {
			dbg.SendMessage("dist > 300")
		}
		return false
	}
	if !e.store.Loaded() {
		return true
	}
	l := lookup{op: opSight}
	defer e.flush(&l)

	if dbg != nil {
		// A zero-length trace has no direction and reports half a turn.
		heading := int32(32768)
		if r.distance > 0 {
			heading = headingOf(r.plusX, r.plusY)
		}
		dbg.SendMessage(fmt.Sprintf("Los: from X: %d Y: %d --->> X: %d Y: %d", x, y, tx, ty))
		dbg.SendMessage(fmt.Sprintf("Los: Heading: %d Angle: %s", heading, compass(heading)))
	}

	for r.next() {
		if !e.nlos(&l, r.lastX, r.lastY, r.stepZ(), r.curX, r.curY, tz) {
			if dbg != nil {
				dbg.SendMessage(fmt.Sprintf("Los: blocked at X: %d Y: %d Z: %d", r.lastX, r.lastY, r.stepZ()))
			}
			return false
		}
		if dbg != nil && float64(r.crossings) > r.distance {
			dbg.SendMessage("Error!!")
			return false
		}
	}
	if r.aborted {
		e.logger.Warn("geo engine: sight raycast exceeded step budget",
			"from_x", x, "from_y", y, "to_x", tx, "to_y", ty, "steps", r.iterations)
		if dbg != nil {
			dbg.SendMessage("Error!!")
		}
		return false
	}
	return true
}

// nlos checks a single sight crossing from cell (x,y) to (tx,ty).
// On stacked floors the layers nearest the ray altitude and the target
// altitude must lie within MaxLayerSightDelta of each other, and either one
// may let the ray through.
func (e *Engine) nlos(l *lookup, x, y, z, tx, ty, tz int32) bool {
	layers, res := e.cellLayers(l, x, y)
	switch res {
	case lookupUnmapped:
		return true
	case lookupCorrupt:
		return false
	}

	step := layers.Nearest(z)
	if layers.Kind() != BlockMultilayer {
		return CheckNSWE(step.NSWE, x, y, tx, ty)
	}

	target := layers.Nearest(tz)
	if abs32(int32(step.Height)-int32(target.Height)) > MaxLayerSightDelta {
		return false
	}
	return CheckNSWE(step.NSWE, x, y, tx, ty) || CheckNSWE(target.NSWE, x, y, tx, ty)
}

// headingOf returns the client heading (0-65535) of the reversed direction
// vector, shifted by half a turn.
func headingOf(plusX, plusY float64) int32 {
	return int32(math.Atan2(-plusY, -plusX)*headingScale) + 32768
}

// compass discretises a heading into the eight compass directions.
// Exact diagonals only match on the boundary headings.
func compass(h int32) string {
	switch {
	case 8192 < h && h < 24576:
		return "S"
	case 24576 < h && h < 40960:
		return "W"
	case 40960 < h && h < 57344:
		return "N"
	case 57344 < h || h < 8192:
		return "E"
	case h == 8192:
		return "SE"
	case h == 24576:
		return "SW"
	case h == 40960:
		return "NW"
	case h == 57344:
		return "NE"
	default:
		return "Error!"
	}
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
