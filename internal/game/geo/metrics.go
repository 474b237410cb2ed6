package geo

import "github.com/prometheus/client_golang/prometheus"

// queryOp identifies a public query for logging and metrics.
type queryOp uint8

const (
	opHeight queryOp = iota
	opSpawnHeight
	opNSWE
	opType
	opMove
	opSight
	opPath
	opCount
)

func (o queryOp) String() string {
	switch o {
	case opHeight:
		return "height"
	case opSpawnHeight:
		return "spawn_height"
	case opNSWE:
		return "nswe"
	case opType:
		return "type"
	case opMove:
		return "move"
	case opSight:
		return "sight"
	case opPath:
		return "path"
	default:
		return "unknown"
	}
}

// Metrics holds the geodata Prometheus collectors.
// Counters are resolved once so queries never look labels up.
type Metrics struct {
	queries      [opCount]prometheus.Counter
	unmapped     [opCount]prometheus.Counter
	corrupt      [opCount]prometheus.Counter
	spawnRange   prometheus.Counter
	moveClamped  prometheus.Counter
	sightBlocked prometheus.Counter
	bugSaved     prometheus.Counter
	bugFailed    prometheus.Counter

	regionsLoaded prometheus.Gauge
	regionBytes   prometheus.Gauge
	maxLayers     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geodata",
		Name:      "queries_total",
		Help:      "Geodata queries by operation.",
	}, []string{"op"})
	unmapped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geodata",
		Name:      "region_unmapped_total",
		Help:      "Lookups that fell into a region without geodata.",
	}, []string{"op"})
	corrupt := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geodata",
		Name:      "corrupt_data_total",
		Help:      "Lookups that hit an undecodable block record.",
	}, []string{"op"})
	bugs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geodata",
		Name:      "bug_reports_total",
		Help:      "Geodata bug reports by result.",
	}, []string{"result"})

	m := &Metrics{
		spawnRange: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geodata",
			Name:      "spawn_range_violations_total",
			Help:      "Spawn heights resolved outside the requested band.",
		}),
		moveClamped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geodata",
			Name:      "move_clamped_total",
			Help:      "Move checks stopped before the destination.",
		}),
		sightBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geodata",
			Name:      "sight_blocked_total",
			Help:      "Line of sight checks that failed.",
		}),
		bugSaved:  bugs.WithLabelValues("saved"),
		bugFailed: bugs.WithLabelValues("failed"),
		regionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geodata",
			Name:      "regions_loaded",
			Help:      "Regions published in the store.",
		}),
		regionBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geodata",
			Name:      "region_bytes",
			Help:      "Total size of loaded region buffers.",
		}),
		maxLayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geodata",
			Name:      "max_layers",
			Help:      "Largest layer count seen across loaded regions.",
		}),
	}
	for op := range opCount {
		m.queries[op] = queries.WithLabelValues(op.String())
		m.unmapped[op] = unmapped.WithLabelValues(op.String())
		m.corrupt[op] = corrupt.WithLabelValues(op.String())
	}

	if reg != nil {
		reg.MustRegister(queries, unmapped, corrupt, bugs,
			m.spawnRange, m.moveClamped, m.sightBlocked,
			m.regionsLoaded, m.regionBytes, m.maxLayers)
	}
	return m
}
