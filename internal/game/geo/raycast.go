package geo

import "math"

// ray walks a straight line across the geo grid in unit planar steps,
// stopping at every grid-cell crossing. Z advances proportionally per
// crossing. The walk ends when the target cell is reached.
type ray struct {
	x, y, z             float64
	plusX, plusY, plusZ float64
	distance            float64

	lastX, lastY int32
	curX, curY   int32
	tx, ty       int32

	iterations    int
	maxIterations int
	crossings     int
	aborted       bool
}

func newRay(geoX, geoY, z, tx, ty, tz int32) ray {
	dx := float64(tx - geoX)
	dy := float64(ty - geoY)
	dz := float64(tz - z)
	distance := math.Sqrt(dx*dx + dy*dy)

	r := ray{
		x:        float64(geoX),
		y:        float64(geoY),
		z:        float64(z),
		distance: distance,
		lastX:    geoX,
		lastY:    geoY,
		curX:     geoX,
		curY:     geoY,
		tx:       tx,
		ty:       ty,
		// The target is reached after round(distance) steps; the extra
		// step bounds float drift.
		maxIterations: int(distance) + 2,
	}
	if distance > 0 {
		r.plusX = dx / distance
		r.plusY = dy / distance
		r.plusZ = dz / distance
	}
	return r
}

// next advances to the next cell crossing. It returns false once the target
// cell is reached or the walk ran past its step budget (see aborted).
func (r *ray) next() bool {
	for r.curX != r.tx || r.curY != r.ty {
		if r.iterations >= r.maxIterations {
			r.aborted = true
			return false
		}
		r.iterations++

		r.lastX, r.lastY = r.curX, r.curY
		r.x += r.plusX
		r.y += r.plusY
		r.curX = roundHalfUp(r.x)
		r.curY = roundHalfUp(r.y)

		if r.lastX != r.curX || r.lastY != r.curY {
			r.z += r.plusZ
			r.crossings++
			return true
		}
	}
	return false
}

// stepZ returns the interpolated altitude at the current crossing.
func (r *ray) stepZ() int32 {
	return int32(r.z)
}

func roundHalfUp(v float64) int32 {
	return int32(math.Floor(v + 0.5))
}
