package geo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// BugReport locates a geodata defect reported by an operator.
type BugReport struct {
	Address
	Z          int32
	Comment    string
	ReportedAt time.Time
}

// Line formats the report as one bug log record:
// rx;ry;bx;by;cx:cy;z;comment followed by a newline.
// Line breaks inside the comment are flattened so a record is always one line.
func (r BugReport) Line() string {
	comment := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(r.Comment)
	return fmt.Sprintf("%d;%d;%d;%d;%d:%d;%d;%s\n",
		r.RX, r.RY, r.BlockX, r.BlockY, r.CellX, r.CellY, r.Z, comment)
}

// BugReporter persists bug reports. Implementations must be safe for
// concurrent use.
type BugReporter interface {
	Report(ctx context.Context, report BugReport) error
}

// FileBugLog appends bug reports to a text file.
type FileBugLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenBugLog opens (creating if needed) the append-only bug log at path.
func OpenBugLog(path string) (*FileBugLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating bug log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening bug log: %w", err)
	}
	return &FileBugLog{file: f}, nil
}

// Report writes one line. Concurrent reports never interleave.
func (l *FileBugLog) Report(_ context.Context, report BugReport) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.WriteString(report.Line()); err != nil {
		return fmt.Errorf("writing bug log: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *FileBugLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// ReportBug records a bug at world position pos.
func (e *Engine) ReportBug(ctx context.Context, pos Point3D, comment string) (BugReport, error) {
	report := BugReport{
		Address:    AddressOf(GeoX(pos.X), GeoY(pos.Y)),
		Z:          pos.Z,
		Comment:    comment,
		ReportedAt: time.Now().UTC(),
	}
	if e.bugs == nil {
		e.metrics.bugFailed.Inc()
		return report, ErrNoBugReporter
	}
	if err := e.bugs.Report(ctx, report); err != nil {
		e.metrics.bugFailed.Inc()
		return report, fmt.Errorf("reporting geodata bug: %w", err)
	}
	e.metrics.bugSaved.Inc()
	return report, nil
}

// AddGeoDataBug records a bug at the operator's position and acknowledges
// the outcome to them.
func (e *Engine) AddGeoDataBug(ctx context.Context, gm DebugViewer, comment string) bool {
	report, err := e.ReportBug(ctx, gm.Position(), comment)
	if err != nil {
		e.logger.Error("geo engine: saving geodata bug",
			"rx", report.RX, "ry", report.RY,
			"block_x", report.BlockX, "block_y", report.BlockY,
			"cell_x", report.CellX, "cell_y", report.CellY,
			"z", report.Z, "err", err)
		gm.SendMessage("GeoData bug save Failed!")
		return false
	}
	gm.SendMessage("GeoData bug saved!")
	return true
}
