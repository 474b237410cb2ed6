package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/la2geo/internal/game/geo"
)

// GeoBugRepository stores operator geodata bug reports in geo_bugs.
// It satisfies geo.BugReporter.
type GeoBugRepository struct {
	pool *pgxpool.Pool
}

// NewGeoBugRepository creates a new geodata bug repository
func NewGeoBugRepository(pool *pgxpool.Pool) *GeoBugRepository {
	return &GeoBugRepository{pool: pool}
}

// Report inserts one bug report.
func (r *GeoBugRepository) Report(ctx context.Context, report geo.BugReport) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO geo_bugs (region_x, region_y, block_x, block_y, cell_x, cell_y, z, comment, reported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		report.RX, report.RY, report.BlockX, report.BlockY, report.CellX, report.CellY,
		report.Z, report.Comment, report.ReportedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting geo bug at %d_%d: %w", report.RX, report.RY, err)
	}
	return nil
}

// List returns the most recent reports, newest first.
func (r *GeoBugRepository) List(ctx context.Context, limit int) ([]geo.BugReport, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT region_x, region_y, block_x, block_y, cell_x, cell_y, z, comment, reported_at
		FROM geo_bugs
		ORDER BY reported_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing geo bugs: %w", err)
	}
	defer rows.Close()

	reports := make([]geo.BugReport, 0, limit)
	for rows.Next() {
		var (
			b              geo.BugReport
			rx, ry, bx, by int16
			cx, cy         int16
		)
		if err := rows.Scan(&rx, &ry, &bx, &by, &cx, &cy, &b.Z, &b.Comment, &b.ReportedAt); err != nil {
			return nil, fmt.Errorf("scanning geo bug row: %w", err)
		}
		b.Address = geo.Address{
			RX: int32(rx), RY: int32(ry),
			BlockX: int32(bx), BlockY: int32(by),
			CellX: int32(cx), CellY: int32(cy),
		}
		reports = append(reports, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating geo bug rows: %w", err)
	}
	return reports, nil
}
