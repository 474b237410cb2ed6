package geo

import (
	"fmt"
	"log/slog"
)

// Positioned is anything with a world position (players, NPCs, objects).
type Positioned interface {
	Position() Point3D
}

// Messenger receives human-readable diagnostics.
type Messenger interface {
	SendMessage(text string)
}

// DebugViewer is a positioned operator that can read diagnostic output.
type DebugViewer interface {
	Positioned
	Messenger
}

// Engine answers height, movement and line of sight queries over a RegionStore.
// Thread-safe: the store is immutable once loaded.
type Engine struct {
	store   *RegionStore
	logger  *slog.Logger
	metrics *Metrics
	bugs    BugReporter
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for data-quality warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithBugReporter sets the sink for operator geodata bug reports.
func WithBugReporter(r BugReporter) Option {
	return func(e *Engine) {
		e.bugs = r
	}
}

// NewEngine creates an Engine over store. A nil store behaves as an empty dataset.
func NewEngine(store *RegionStore, opts ...Option) *Engine {
	e := &Engine{store: store}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.store == nil {
		e.store = NewRegionStore(e.logger, e.metrics)
	}
	return e
}

// Store returns the underlying region store.
func (e *Engine) Store() *RegionStore {
	return e.store
}

// IsLoaded returns true if any geodata regions are loaded.
func (e *Engine) IsLoaded() bool {
	return e.store.Loaded()
}

// lookupResult classifies a cell lookup.
type lookupResult uint8

const (
	lookupOK lookupResult = iota
	lookupUnmapped
	lookupCorrupt
)

// lookup gathers the outcome of every cell read made by one query.
// Raycasts and path searches touch many cells; only the first unmapped and
// the first corrupt cell are kept, and flush reports each at most once.
type lookup struct {
	op queryOp

	unmapped   bool
	unmappedAt Address

	corrupt   bool
	corruptAt Address
	err       error
}

// cellLayers resolves the layers stored at a geo cell.
// Unmapped and corrupt cells are recorded in l, not logged.
func (e *Engine) cellLayers(l *lookup, geoX, geoY int32) (Layers, lookupResult) {
	if !e.store.Loaded() {
		return Layers{}, lookupUnmapped
	}

	addr := AddressOf(geoX, geoY)
	region := e.store.Region(addr.RX, addr.RY)
	if region == nil {
		if !l.unmapped {
			l.unmapped, l.unmappedAt = true, addr
		}
		return Layers{}, lookupUnmapped
	}

	block, err := decodeBlock(region, addr.BlockID())
	if err == nil {
		var layers Layers
		if layers, err = block.CellLayers(addr.CellID()); err == nil {
			return layers, lookupOK
		}
	}

	if !l.corrupt {
		l.corrupt, l.corruptAt, l.err = true, addr, err
	}
	return Layers{}, lookupCorrupt
}

// flush logs and counts what l recorded. Call once when the query ends.
func (e *Engine) flush(l *lookup) {
	if l.unmapped {
		e.warnUnmapped(l.op, l.unmappedAt)
	}
	if l.corrupt {
		e.warnCorrupt(l.op, l.corruptAt, l.err)
	}
}

func (e *Engine) warnUnmapped(op queryOp, addr Address) {
	e.metrics.unmapped[op].Inc()
	e.logger.Warn("geo region not loaded",
		"query", op.String(),
		"region_offset", addr.RegionOffset(),
		"rx", addr.RX, "ry", addr.RY)
}

func (e *Engine) warnCorrupt(op queryOp, addr Address, err error) {
	e.metrics.corrupt[op].Inc()
	e.logger.Warn("geo engine: corrupt block data",
		"query", op.String(),
		"rx", addr.RX, "ry", addr.RY,
		"block_x", addr.BlockX, "block_y", addr.BlockY,
		"cell_x", addr.CellX, "cell_y", addr.CellY,
		"err", err)
}

// HasGeoPos returns true if per-cell geodata exists at the given world position.
func (e *Engine) HasGeoPos(worldX, worldY int32) bool {
	return e.GetType(worldX, worldY) != BlockFlat
}

// GetType returns the block type at (x, y). Unmapped positions report flat.
func (e *Engine) GetType(worldX, worldY int32) BlockKind {
	e.metrics.queries[opType].Inc()
	if !e.store.Loaded() {
		return BlockFlat
	}

	addr := AddressOf(GeoX(worldX), GeoY(worldY))
	region := e.store.Region(addr.RX, addr.RY)
	if region == nil {
		e.warnUnmapped(opType, addr)
		return BlockFlat
	}

	block, err := decodeBlock(region, addr.BlockID())
	if err != nil {
		e.warnCorrupt(opType, addr, err)
		return BlockFlat
	}
	return block.Kind()
}

// GeoPosition describes the dataset location of a world position.
func (e *Engine) GeoPosition(worldX, worldY int32) string {
	gx, gy := GeoX(worldX), GeoY(worldY)
	a := AddressOf(gx, gy)
	return fmt.Sprintf("bx: %d by: %d cx: %d cy: %d  region offset: %d",
		a.BlockX, a.BlockY, a.CellX, a.CellY, a.RegionOffset())
}
