package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/t77yq/minewatch/internal/model"
)

// DefaultAlertLimit bounds alert list queries when no limit is supplied.
const DefaultAlertLimit = 100

// AlertFilters narrows alert list queries. Nil fields are ignored; the
// supplied fields combine with AND semantics.
type AlertFilters struct {
	Status   *model.AlertStatus
	Severity *model.AlertSeverity
	Type     *model.AlertType
	MineID   *int64
	PointID  *int64
	Start    *time.Time
	End      *time.Time
	Offset   int
	Limit    int
}

const alertColumns = `
	a.id, a.monitoring_point_id, a.alert_type, a.severity, a.status,
	a.title, a.description, a.confidence_score,
	a.image_url, a.video_url, a.location_details, a.equipment_id, a.notes,
	a.detected_at, a.acknowledged_at, a.acknowledged_by, a.resolved_at, a.resolved_by`

// InsertAlert stores a new alert and assigns its ID.
func (s *Store) InsertAlert(ctx context.Context, a *model.Alert) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (
			monitoring_point_id, alert_type, severity, status,
			title, description, confidence_score,
			image_url, video_url, location_details, equipment_id, notes,
			detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.MonitoringPointID,
		a.AlertType,
		a.Severity,
		a.Status,
		a.Title,
		sql.NullString{String: a.Description, Valid: a.Description != ""},
		nullFloat(a.ConfidenceScore),
		sql.NullString{String: a.ImageURL, Valid: a.ImageURL != ""},
		sql.NullString{String: a.VideoURL, Valid: a.VideoURL != ""},
		sql.NullString{String: a.LocationDetails, Valid: a.LocationDetails != ""},
		sql.NullString{String: a.EquipmentID, Valid: a.EquipmentID != ""},
		sql.NullString{String: a.Notes, Valid: a.Notes != ""},
		a.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get alert id: %w", err)
	}
	return nil
}

// GetAlert retrieves an alert by ID.
func (s *Store) GetAlert(ctx context.Context, id int64) (*model.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts a WHERE a.id = ?`, id)
	a, err := scanAlert(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("alert %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}
	return a, nil
}

// UpdateAlert persists the mutable columns of an alert in a single-row
// update. Type, severity and detected_at are never rewritten.
func (s *Store) UpdateAlert(ctx context.Context, a *model.Alert) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET
			status = ?,
			title = ?,
			description = ?,
			notes = ?,
			image_url = ?,
			video_url = ?,
			acknowledged_at = ?,
			acknowledged_by = ?,
			resolved_at = ?,
			resolved_by = ?
		WHERE id = ?`,
		a.Status,
		a.Title,
		sql.NullString{String: a.Description, Valid: a.Description != ""},
		sql.NullString{String: a.Notes, Valid: a.Notes != ""},
		sql.NullString{String: a.ImageURL, Valid: a.ImageURL != ""},
		sql.NullString{String: a.VideoURL, Valid: a.VideoURL != ""},
		nullTime(a.AcknowledgedAt),
		nullInt(a.AcknowledgedBy),
		nullTime(a.ResolvedAt),
		nullInt(a.ResolvedBy),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert %d: %w", a.ID, ErrNotFound)
	}
	return nil
}

// DeleteAlert removes an alert by ID.
func (s *Store) DeleteAlert(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListAlerts lists alerts matching the filters, newest detections first.
func (s *Store) ListAlerts(ctx context.Context, filters AlertFilters) ([]*model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts a`
	args := make([]interface{}, 0)

	var where []string
	if filters.MineID != nil {
		query += ` JOIN monitoring_points p ON p.id = a.monitoring_point_id`
		where = append(where, "p.mine_id = ?")
		args = append(args, *filters.MineID)
	}
	if filters.PointID != nil {
		where = append(where, "a.monitoring_point_id = ?")
		args = append(args, *filters.PointID)
	}
	if filters.Status != nil {
		where = append(where, "a.status = ?")
		args = append(args, *filters.Status)
	}
	if filters.Severity != nil {
		where = append(where, "a.severity = ?")
		args = append(args, *filters.Severity)
	}
	if filters.Type != nil {
		where = append(where, "a.alert_type = ?")
		args = append(args, *filters.Type)
	}
	if filters.Start != nil {
		where = append(where, "a.detected_at >= ?")
		args = append(args, *filters.Start)
	}
	if filters.End != nil {
		where = append(where, "a.detected_at <= ?")
		args = append(args, *filters.End)
	}

	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	query += " ORDER BY a.detected_at DESC, a.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filters.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return collectAlerts(rows)
}

// ActiveAlerts lists alerts with status active, optionally scoped to a mine.
func (s *Store) ActiveAlerts(ctx context.Context, mineID *int64) ([]*model.Alert, error) {
	status := model.AlertStatusActive
	return s.ListAlerts(ctx, AlertFilters{Status: &status, MineID: mineID})
}

// ActiveCriticalAlerts lists alerts that are both active and critical,
// optionally scoped to a mine.
func (s *Store) ActiveCriticalAlerts(ctx context.Context, mineID *int64) ([]*model.Alert, error) {
	status := model.AlertStatusActive
	severity := model.AlertSeverityCritical
	return s.ListAlerts(ctx, AlertFilters{Status: &status, Severity: &severity, MineID: mineID})
}

// CountAlerts counts alerts matching the optional mine, status and severity
// filters.
func (s *Store) CountAlerts(ctx context.Context, mineID *int64, status *model.AlertStatus, severity *model.AlertSeverity) (int, error) {
	query := `SELECT COUNT(*) FROM alerts a`
	args := make([]interface{}, 0)

	var where []string
	if mineID != nil {
		query += ` JOIN monitoring_points p ON p.id = a.monitoring_point_id`
		where = append(where, "p.mine_id = ?")
		args = append(args, *mineID)
	}
	if status != nil {
		where = append(where, "a.status = ?")
		args = append(args, *status)
	}
	if severity != nil {
		where = append(where, "a.severity = ?")
		args = append(args, *severity)
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

// RecentAlerts lists the most recently detected alerts, optionally scoped to
// a mine. Ties on detected_at fall back to id order.
func (s *Store) RecentAlerts(ctx context.Context, mineID *int64, limit int) ([]*model.Alert, error) {
	return s.ListAlerts(ctx, AlertFilters{MineID: mineID, Limit: limit})
}

// DeleteResolvedAlertsBefore removes resolved alerts whose resolution
// happened before the given time and returns how many were deleted.
func (s *Store) DeleteResolvedAlertsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE status = ? AND resolved_at < ?`,
		model.AlertStatusResolved, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alerts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected, nil
}

func scanAlert(row rowScanner) (*model.Alert, error) {
	a := &model.Alert{}
	var description, imageURL, videoURL, locationDetails, equipmentID, notes sql.NullString
	var confidence sql.NullFloat64
	var acknowledgedAt, resolvedAt sql.NullTime
	var acknowledgedBy, resolvedBy sql.NullInt64

	err := row.Scan(
		&a.ID,
		&a.MonitoringPointID,
		&a.AlertType,
		&a.Severity,
		&a.Status,
		&a.Title,
		&description,
		&confidence,
		&imageURL,
		&videoURL,
		&locationDetails,
		&equipmentID,
		&notes,
		&a.DetectedAt,
		&acknowledgedAt,
		&acknowledgedBy,
		&resolvedAt,
		&resolvedBy,
	)
	if err != nil {
		return nil, err
	}

	a.Description = description.String
	a.ImageURL = imageURL.String
	a.VideoURL = videoURL.String
	a.LocationDetails = locationDetails.String
	a.EquipmentID = equipmentID.String
	a.Notes = notes.String
	a.ConfidenceScore = floatPtr(confidence)
	a.AcknowledgedAt = timePtr(acknowledgedAt)
	a.AcknowledgedBy = intPtr(acknowledgedBy)
	a.ResolvedAt = timePtr(resolvedAt)
	a.ResolvedBy = intPtr(resolvedBy)
	return a, nil
}

func collectAlerts(rows *sql.Rows) ([]*model.Alert, error) {
	defer rows.Close()

	var alerts []*model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return alerts, nil
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
