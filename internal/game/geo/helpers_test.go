package geo

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/la2geo/internal/testutil"
)

// Region 16_10 starts at geo (0,0), so block and cell indices equal geo
// coordinates divided by 8 and modulo 8.
const (
	testRX = 16
	testRY = 10
)

// cellCenter returns the world position at the centre of geo cell (gx, gy).
func cellCenter(gx, gy, z int32) Point3D {
	return Point3D{X: WorldX(gx), Y: WorldY(gy), Z: z}
}

// newTestEngine loads data as region 16_10 and returns an engine over it.
func newTestEngine(t *testing.T, data []byte, opts ...Option) *Engine {
	t.Helper()

	store := NewRegionStore(nil, nil)
	require.NoError(t, store.AddRegion(testRX, testRY, data))
	return NewEngine(store, opts...)
}

// complexWithCell builds a region whose block 0 is complex, open at height 0
// except for one cell.
func complexWithCell(cx, cy int32, height int16, nswe byte) []byte {
	cells := testutil.UniformCells(testutil.PackLayer(0, NSWEAll))
	cells[CellID(cx, cy)] = testutil.PackLayer(height, nswe)
	return testutil.NewRegionBuilder().Complex(0, cells).Bytes()
}

// multilayerBlock builds a region whose block 0 stores the same layers in every cell.
func multilayerBlock(layers ...uint16) []byte {
	return testutil.NewRegionBuilder().Multilayer(0, testutil.UniformLayers(layers...)).Bytes()
}

// testViewer is an operator standing at a fixed position.
type testViewer struct {
	pos Point3D

	mu   sync.Mutex
	msgs []string
}

func (v *testViewer) Position() Point3D { return v.pos }

func (v *testViewer) SendMessage(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.msgs = append(v.msgs, text)
}

func (v *testViewer) messages() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.msgs...)
}

// memoryBugs collects reports in memory and can be told to fail.
type memoryBugs struct {
	mu      sync.Mutex
	reports []BugReport
	err     error
}

func (m *memoryBugs) Report(_ context.Context, r BugReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, r)
	return nil
}
