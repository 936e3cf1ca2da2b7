package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/classwatch/internal/model"
)

// WatchStore handles the watched sections, who watches them and their seat history
type WatchStore struct {
	db *sql.DB
}

// NewWatchStore creates a new WatchStore
func NewWatchStore(db *sql.DB) *WatchStore {
	return &WatchStore{db: db}
}

const upsertSectionQuery = `
	INSERT INTO sections (id, course_id, course_name, section_number,
	                      open_seats, total_seats, checksum, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	ON CONFLICT (id) DO UPDATE SET
		course_id = EXCLUDED.course_id,
		course_name = CASE WHEN EXCLUDED.course_name = $8 THEN sections.course_name
		                   ELSE EXCLUDED.course_name END,
		section_number = EXCLUDED.section_number,
		open_seats = EXCLUDED.open_seats,
		total_seats = EXCLUDED.total_seats,
		checksum = EXCLUDED.checksum,
		updated_at = EXCLUDED.updated_at
`

const insertSnapshotQuery = `
	INSERT INTO section_snapshots (section_id, open_seats, total_seats, checksum)
	VALUES ($1, $2, $3, $4)
`

// Watch records that a user watches a section, storing the section's current state
func (s *WatchStore) Watch(ctx context.Context, userID int64, ws model.WatchedSection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := saveWithSnapshot(ctx, tx, ws); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO watching (user_id, section_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, ws.SectionID)
	if err != nil {
		return fmt.Errorf("failed to watch section %s: %w", ws.SectionID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Unwatch removes a user's watch on a section. The section row is kept for history.
func (s *WatchStore) Unwatch(ctx context.Context, userID int64, sectionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM watching WHERE user_id = $1 AND section_id = $2`, userID, sectionID)
	if err != nil {
		return fmt.Errorf("failed to unwatch section %s: %w", sectionID, err)
	}
	return nil
}

// IsWatching reports whether the user watches the section
func (s *WatchStore) IsWatching(ctx context.Context, userID int64, sectionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM watching WHERE user_id = $1 AND section_id = $2)
	`, userID, sectionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check watch on section %s: %w", sectionID, err)
	}
	return exists, nil
}

// ListForUser returns the sections a user watches, ordered by course and section number
func (s *WatchStore) ListForUser(ctx context.Context, userID int64) ([]model.WatchedSection, error) {
	return s.list(ctx, `
		SELECT s.id, s.course_id, s.course_name, s.section_number,
		       s.open_seats, s.total_seats, s.checksum, s.updated_at
		FROM sections s
		JOIN watching w ON w.section_id = s.id
		WHERE w.user_id = $1
		ORDER BY s.course_name, s.section_number
	`, userID)
}

// ListWatched returns every section with at least one watcher
func (s *WatchStore) ListWatched(ctx context.Context) ([]model.WatchedSection, error) {
	return s.list(ctx, `
		SELECT s.id, s.course_id, s.course_name, s.section_number,
		       s.open_seats, s.total_seats, s.checksum, s.updated_at
		FROM sections s
		WHERE EXISTS (SELECT 1 FROM watching w WHERE w.section_id = s.id)
		ORDER BY s.course_name, s.section_number
	`)
}

func (s *WatchStore) list(ctx context.Context, query string, args ...any) ([]model.WatchedSection, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()

	var sections []model.WatchedSection
	for rows.Next() {
		var ws model.WatchedSection
		if err := rows.Scan(
			&ws.SectionID,
			&ws.CourseID,
			&ws.CourseName,
			&ws.SectionNumber,
			&ws.OpenSeats,
			&ws.TotalSeats,
			&ws.Checksum,
			&ws.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, ws)
	}

	return sections, rows.Err()
}

// GetSection returns the stored state of a section, or nil when it was never watched
func (s *WatchStore) GetSection(ctx context.Context, sectionID string) (*model.WatchedSection, error) {
	sections, err := s.list(ctx, `
		SELECT id, course_id, course_name, section_number,
		       open_seats, total_seats, checksum, updated_at
		FROM sections
		WHERE id = $1
	`, sectionID)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, nil
	}
	return &sections[0], nil
}

// Watchers returns the users watching a section
func (s *WatchStore) Watchers(ctx context.Context, sectionID string) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.created_at
		FROM users u
		JOIN watching w ON w.user_id = u.id
		WHERE w.section_id = $1
		ORDER BY u.username
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchers of section %s: %w", sectionID, err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watcher: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// SaveSectionWithSnapshot saves the current state of a section and only creates a
// snapshot if its checksum changed
func (s *WatchStore) SaveSectionWithSnapshot(ctx context.Context, ws model.WatchedSection) (changed bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	changed, err = saveWithSnapshot(ctx, tx, ws)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return changed, nil
}

func saveWithSnapshot(ctx context.Context, tx *sql.Tx, ws model.WatchedSection) (bool, error) {
	var existingChecksum sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT checksum FROM sections WHERE id = $1 FOR UPDATE`, ws.SectionID).Scan(&existingChecksum)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to read section %s: %w", ws.SectionID, err)
	}

	changed := !existingChecksum.Valid || existingChecksum.String != ws.Checksum

	_, err = tx.ExecContext(ctx, upsertSectionQuery,
		ws.SectionID,
		ws.CourseID,
		ws.CourseName,
		ws.SectionNumber,
		ws.OpenSeats,
		ws.TotalSeats,
		ws.Checksum,
		model.UnknownName,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert section %s: %w", ws.SectionID, err)
	}

	if changed {
		_, err = tx.ExecContext(ctx, insertSnapshotQuery, ws.SectionID, ws.OpenSeats, ws.TotalSeats, ws.Checksum)
		if err != nil {
			return false, fmt.Errorf("failed to insert snapshot for section %s: %w", ws.SectionID, err)
		}
	}

	return changed, nil
}

// Snapshots returns a section's seat history, newest first
func (s *WatchStore) Snapshots(ctx context.Context, sectionID string) ([]model.SectionSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, section_id, open_seats, total_seats, checksum, snapshot_at
		FROM section_snapshots
		WHERE section_id = $1
		ORDER BY snapshot_at DESC
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots for section %s: %w", sectionID, err)
	}
	defer rows.Close()

	var snapshots []model.SectionSnapshot
	for rows.Next() {
		var snap model.SectionSnapshot
		if err := rows.Scan(
			&snap.ID,
			&snap.SectionID,
			&snap.OpenSeats,
			&snap.TotalSeats,
			&snap.Checksum,
			&snap.SnapshotAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}
