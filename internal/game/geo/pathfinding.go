package geo

import (
	"container/heap"
	"math"
)

// FindPath searches a walkable route between two world positions with A*
// over geo cells. It returns world-space waypoints ending at the goal, or nil
// when no route exists within MaxPathfindIterations expansions.
func (e *Engine) FindPath(sx, sy, sz, ex, ey, ez int32) []Point3D {
	e.metrics.queries[opPath].Inc()
	if !e.store.Loaded() {
		return []Point3D{{X: ex, Y: ey, Z: ez}}
	}

	l := lookup{op: opPath}
	defer e.flush(&l)

	gsx, gsy := GeoX(sx), GeoY(sy)
	gex, gey := GeoX(ex), GeoY(ey)
	startZ := e.nearestZ(&l, gsx, gsy, sz)
	endZ := e.nearestZ(&l, gex, gey, ez)

	if gsx == gex && gsy == gey {
		return []Point3D{{X: ex, Y: ey, Z: endZ}}
	}

	goal := e.astar(&l, gsx, gsy, startZ, gex, gey, endZ)
	if goal == nil {
		return nil
	}

	path := make([]Point3D, 0, 32)
	for n := goal; n != nil; n = n.parent {
		path = append(path, Point3D{X: WorldX(n.x), Y: WorldY(n.y), Z: n.z})
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return e.smoothPath(&l, path)
}

// smoothPath drops waypoint N-1 whenever N is directly reachable from the
// last kept waypoint. At most three passes.
func (e *Engine) smoothPath(l *lookup, path []Point3D) []Point3D {
	for range 3 {
		if len(path) <= 2 {
			return path
		}

		changed := false
		smoothed := make([]Point3D, 0, len(path))
		smoothed = append(smoothed, path[0])
		for i := 1; i < len(path)-1; i++ {
			prev := smoothed[len(smoothed)-1]
			next := path[i+1]
			if e.moveCheck(l, prev.X, prev.Y, prev.Z, next.X, next.Y, next.Z) == next {
				changed = true
				continue
			}
			smoothed = append(smoothed, path[i])
		}
		smoothed = append(smoothed, path[len(path)-1])
		path = smoothed

		if !changed {
			break
		}
	}
	return path
}

type geoNode struct {
	x, y, z int32
	parent  *geoNode
	gCost   float64
	fCost   float64
	index   int
}

type nodeKey struct {
	x, y, z int32
}

// pathStep is a neighbour direction; diagonals name the two cardinals
// that must both be open.
type pathStep struct {
	dx, dy     int32
	flag       byte
	adj1, adj2 int
}

var (
	cardinalSteps = [4]pathStep{
		{dx: 0, dy: -1, flag: NSWENorth},
		{dx: 1, dy: 0, flag: NSWEEast},
		{dx: 0, dy: 1, flag: NSWESouth},
		{dx: -1, dy: 0, flag: NSWEWest},
	}
	diagonalSteps = [4]pathStep{
		{dx: 1, dy: -1, adj1: 0, adj2: 1},
		{dx: 1, dy: 1, adj1: 1, adj2: 2},
		{dx: -1, dy: 1, adj1: 2, adj2: 3},
		{dx: -1, dy: -1, adj1: 3, adj2: 0},
	}
)

func (e *Engine) astar(l *lookup, sx, sy, sz, tx, ty, tz int32) *geoNode {
	start := &geoNode{x: sx, y: sy, z: sz}
	start.fCost = heuristic(sx, sy, sz, tx, ty, tz)

	open := &nodeHeap{}
	heap.Push(open, start)
	closed := make(map[nodeKey]struct{}, 256)

	for range MaxPathfindIterations {
		if open.Len() == 0 {
			return nil
		}
		current := heap.Pop(open).(*geoNode)
		if current.x == tx && current.y == ty && abs32(current.z-tz) < PathZTolerance {
			return current
		}

		key := nodeKey{current.x, current.y, current.z}
		if _, seen := closed[key]; seen {
			continue
		}
		closed[key] = struct{}{}
		e.expand(l, current, tx, ty, tz, open, closed)
	}

	e.logger.Debug("geo engine: pathfinding iteration budget exhausted",
		"from_x", sx, "from_y", sy, "to_x", tx, "to_y", ty)
	return nil
}

func (e *Engine) expand(l *lookup, current *geoNode, tx, ty, tz int32, open *nodeHeap, closed map[nodeKey]struct{}) {
	nswe := e.nsweAt(l, current.x, current.y, current.z)

	var open4 [4]bool
	for i, s := range cardinalSteps {
		if nswe&s.flag == 0 {
			continue
		}
		open4[i] = true
		e.push(l, current, s, WeightLow, tx, ty, tz, open, closed)
	}
	for _, s := range diagonalSteps {
		if open4[s.adj1] && open4[s.adj2] {
			e.push(l, current, s, WeightDiagonal, tx, ty, tz, open, closed)
		}
	}
}

func (e *Engine) push(l *lookup, current *geoNode, s pathStep, weight float64, tx, ty, tz int32, open *nodeHeap, closed map[nodeKey]struct{}) {
	nx, ny := current.x+s.dx, current.y+s.dy
	nz := e.nearestZ(l, nx, ny, current.z)
	if _, seen := closed[nodeKey{nx, ny, nz}]; seen {
		return
	}

	// Steep steps and cells next to walls cost more.
	if abs32(nz-current.z) > 16 || e.nsweAt(l, nx, ny, nz) != NSWEAll {
		weight = WeightHigh
	}
	node := &geoNode{x: nx, y: ny, z: nz, parent: current, gCost: current.gCost + weight}
	node.fCost = node.gCost + heuristic(nx, ny, nz, tx, ty, tz)
	heap.Push(open, node)
}

// heuristic is the 3D distance with Z scaled down by 16.
func heuristic(x, y, z, tx, ty, tz int32) float64 {
	dx := float64(x - tx)
	dy := float64(y - ty)
	dz := float64(z - tz)
	return math.Sqrt(dx*dx + dy*dy + dz*dz/256.0)
}

// nodeHeap is a min-heap of open nodes by fCost.
type nodeHeap []*geoNode

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].fCost < h[j].fCost }
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*geoNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[:n-1]
	return node
}
