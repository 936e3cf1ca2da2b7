package service

import (
	"context"
	"database/sql"
	"fmt"
)

// MetricsService calculates watchlist-wide figures for the home page
type MetricsService struct {
	db *sql.DB
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(db *sql.DB) *MetricsService {
	return &MetricsService{db: db}
}

// WatchMetrics represents calculated watchlist metrics
type WatchMetrics struct {
	TotalUsers       int
	WatchedSections  int
	TotalWatches     int
	OpenSections     int
	SnapshotsLastDay int
	MostWatched      string
	MostWatchedCount int
}

// Calculate computes the current watchlist metrics
func (m *MetricsService) Calculate(ctx context.Context) (*WatchMetrics, error) {
	metrics := &WatchMetrics{}

	countsQuery := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(DISTINCT section_id) FROM watching),
			(SELECT COUNT(*) FROM watching),
			(SELECT COUNT(*) FROM sections s
			 WHERE s.open_seats > 0
			   AND EXISTS (SELECT 1 FROM watching w WHERE w.section_id = s.id)),
			(SELECT COUNT(*) FROM section_snapshots
			 WHERE snapshot_at > NOW() - INTERVAL '1 day')
	`
	err := m.db.QueryRowContext(ctx, countsQuery).Scan(
		&metrics.TotalUsers,
		&metrics.WatchedSections,
		&metrics.TotalWatches,
		&metrics.OpenSections,
		&metrics.SnapshotsLastDay,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate watch metrics: %w", err)
	}

	mostWatchedQuery := `
		SELECT s.course_name || ' #' || s.section_number, COUNT(*) AS watchers
		FROM watching w
		JOIN sections s ON s.id = w.section_id
		GROUP BY s.id, s.course_name, s.section_number
		ORDER BY watchers DESC, s.course_name
		LIMIT 1
	`
	err = m.db.QueryRowContext(ctx, mostWatchedQuery).Scan(
		&metrics.MostWatched,
		&metrics.MostWatchedCount,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find most watched section: %w", err)
	}

	return metrics, nil
}
