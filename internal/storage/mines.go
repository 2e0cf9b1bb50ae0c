package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/t77yq/minewatch/internal/model"
)

// CreateMine inserts a mine and returns it with its assigned ID.
func (s *Store) CreateMine(ctx context.Context, mine *model.Mine) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mines (name, location) VALUES (?, ?)`,
		mine.Name,
		sql.NullString{String: mine.Location, Valid: mine.Location != ""},
	)
	if err != nil {
		return fmt.Errorf("failed to create mine: %w", err)
	}
	mine.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get mine id: %w", err)
	}
	return nil
}

// GetMine retrieves a mine by ID.
func (s *Store) GetMine(ctx context.Context, id int64) (*model.Mine, error) {
	var mine model.Mine
	var location sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, location FROM mines WHERE id = ?`, id).
		Scan(&mine.ID, &mine.Name, &location)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("mine %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan mine: %w", err)
	}

	mine.Location = location.String
	return &mine, nil
}

// CreateMonitoringPoint inserts a monitoring point and returns it with its
// assigned ID.
func (s *Store) CreateMonitoringPoint(ctx context.Context, point *model.MonitoringPoint) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO monitoring_points (
			mine_id, name, location, camera_id, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		point.MineID,
		point.Name,
		sql.NullString{String: point.Location, Valid: point.Location != ""},
		sql.NullString{String: point.CameraID, Valid: point.CameraID != ""},
		point.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create monitoring point: %w", err)
	}
	point.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get monitoring point id: %w", err)
	}
	return nil
}

// GetMonitoringPoint retrieves a monitoring point by ID.
func (s *Store) GetMonitoringPoint(ctx context.Context, id int64) (*model.MonitoringPoint, error) {
	var point model.MonitoringPoint
	var location, cameraID sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, mine_id, name, location, camera_id, is_active, created_at
		FROM monitoring_points
		WHERE id = ?`, id).Scan(
		&point.ID,
		&point.MineID,
		&point.Name,
		&location,
		&cameraID,
		&point.IsActive,
		&point.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("monitoring point %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan monitoring point: %w", err)
	}

	point.Location = location.String
	point.CameraID = cameraID.String
	return &point, nil
}

// MonitoringPointsByMine lists every monitoring point belonging to a mine.
func (s *Store) MonitoringPointsByMine(ctx context.Context, mineID int64) ([]*model.MonitoringPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mine_id, name, location, camera_id, is_active, created_at
		FROM monitoring_points
		WHERE mine_id = ?
		ORDER BY id`, mineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitoring points: %w", err)
	}
	defer rows.Close()

	var points []*model.MonitoringPoint
	for rows.Next() {
		point := &model.MonitoringPoint{}
		var location, cameraID sql.NullString
		if err := rows.Scan(
			&point.ID,
			&point.MineID,
			&point.Name,
			&location,
			&cameraID,
			&point.IsActive,
			&point.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan monitoring point: %w", err)
		}
		point.Location = location.String
		point.CameraID = cameraID.String
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return points, nil
}
