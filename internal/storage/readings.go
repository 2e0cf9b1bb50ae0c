package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/t77yq/minewatch/internal/model"
)

const readingColumns = `
	id, monitoring_point_id,
	methane_concentration, carbon_monoxide, carbon_dioxide,
	oxygen_concentration, hydrogen_sulfide,
	temperature, humidity, pressure, air_flow, dust_concentration,
	ventilation_status, emergency_system_status, recorded_at`

// InsertReading stores a new environment reading and assigns its ID.
func (s *Store) InsertReading(ctx context.Context, r *model.Reading) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (
			monitoring_point_id,
			methane_concentration, carbon_monoxide, carbon_dioxide,
			oxygen_concentration, hydrogen_sulfide,
			temperature, humidity, pressure, air_flow, dust_concentration,
			ventilation_status, emergency_system_status, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.MonitoringPointID,
		nullFloat(r.MethaneConcentration),
		nullFloat(r.CarbonMonoxide),
		nullFloat(r.CarbonDioxide),
		nullFloat(r.OxygenConcentration),
		nullFloat(r.HydrogenSulfide),
		nullFloat(r.Temperature),
		nullFloat(r.Humidity),
		nullFloat(r.Pressure),
		nullFloat(r.AirFlow),
		nullFloat(r.DustConcentration),
		nullBool(r.VentilationStatus),
		nullBool(r.EmergencySystemStatus),
		r.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get reading id: %w", err)
	}
	return nil
}

// UpdateReading rewrites the sensor columns of a stored reading. The
// monitoring point and recorded_at never change.
func (s *Store) UpdateReading(ctx context.Context, r *model.Reading) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE readings SET
			methane_concentration = ?,
			carbon_monoxide = ?,
			carbon_dioxide = ?,
			oxygen_concentration = ?,
			hydrogen_sulfide = ?,
			temperature = ?,
			humidity = ?,
			pressure = ?,
			air_flow = ?,
			dust_concentration = ?,
			ventilation_status = ?,
			emergency_system_status = ?
		WHERE id = ?`,
		nullFloat(r.MethaneConcentration),
		nullFloat(r.CarbonMonoxide),
		nullFloat(r.CarbonDioxide),
		nullFloat(r.OxygenConcentration),
		nullFloat(r.HydrogenSulfide),
		nullFloat(r.Temperature),
		nullFloat(r.Humidity),
		nullFloat(r.Pressure),
		nullFloat(r.AirFlow),
		nullFloat(r.DustConcentration),
		nullBool(r.VentilationStatus),
		nullBool(r.EmergencySystemStatus),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reading: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reading %d: %w", r.ID, ErrNotFound)
	}
	return nil
}

// GetReading retrieves a reading by ID.
func (s *Store) GetReading(ctx context.Context, id int64) (*model.Reading, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+readingColumns+` FROM readings WHERE id = ?`, id)
	r, err := scanReading(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("reading %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan reading: %w", err)
	}
	return r, nil
}

// ReadingsByPoint lists readings for one monitoring point, newest first.
func (s *Store) ReadingsByPoint(ctx context.Context, pointID int64, offset, limit int) ([]*model.Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+readingColumns+`
		FROM readings
		WHERE monitoring_point_id = ?
		ORDER BY recorded_at DESC
		LIMIT ? OFFSET ?`, pointID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	return collectReadings(rows)
}

// ReadingsByMine lists readings across every monitoring point of a mine,
// newest first.
func (s *Store) ReadingsByMine(ctx context.Context, mineID int64, offset, limit int) ([]*model.Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.monitoring_point_id,
			r.methane_concentration, r.carbon_monoxide, r.carbon_dioxide,
			r.oxygen_concentration, r.hydrogen_sulfide,
			r.temperature, r.humidity, r.pressure, r.air_flow, r.dust_concentration,
			r.ventilation_status, r.emergency_system_status, r.recorded_at
		FROM readings r
		JOIN monitoring_points p ON p.id = r.monitoring_point_id
		WHERE p.mine_id = ?
		ORDER BY r.recorded_at DESC
		LIMIT ? OFFSET ?`, mineID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings by mine: %w", err)
	}
	return collectReadings(rows)
}

// ReadingsInRange lists readings for one monitoring point within
// [start, end], oldest first.
func (s *Store) ReadingsInRange(ctx context.Context, pointID int64, start, end time.Time) ([]*model.Reading, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRange, start, end)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+readingColumns+`
		FROM readings
		WHERE monitoring_point_id = ? AND recorded_at >= ? AND recorded_at <= ?
		ORDER BY recorded_at ASC`, pointID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings in range: %w", err)
	}
	return collectReadings(rows)
}

// LatestReading returns the most recent reading for a monitoring point.
func (s *Store) LatestReading(ctx context.Context, pointID int64) (*model.Reading, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+readingColumns+`
		FROM readings
		WHERE monitoring_point_id = ?
		ORDER BY recorded_at DESC
		LIMIT 1`, pointID)
	r, err := scanReading(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no readings for monitoring point %d: %w", pointID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan reading: %w", err)
	}
	return r, nil
}

// HazardousReadings lists readings at a monitoring point that breach any
// fixed safety threshold, newest first. Threshold values mirror the
// evaluator in internal/threshold.
func (s *Store) HazardousReadings(ctx context.Context, pointID int64, methaneMax, tempMax, oxygenMin, coMax float64) ([]*model.Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+readingColumns+`
		FROM readings
		WHERE monitoring_point_id = ? AND (
			methane_concentration > ?
			OR temperature > ?
			OR oxygen_concentration < ?
			OR carbon_monoxide > ?
		)
		ORDER BY recorded_at DESC`, pointID, methaneMax, tempMax, oxygenMin, coMax)
	if err != nil {
		return nil, fmt.Errorf("failed to query hazardous readings: %w", err)
	}
	return collectReadings(rows)
}

// DeleteReading removes a reading by ID.
func (s *Store) DeleteReading(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reading: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reading %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteReadingsBefore removes readings recorded before the given time and
// returns how many were deleted.
func (s *Store) DeleteReadingsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE recorded_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old readings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReading(row rowScanner) (*model.Reading, error) {
	r := &model.Reading{}
	var methane, co, co2, oxygen, h2s, temp, humidity, pressure, airFlow, dust sql.NullFloat64
	var ventilation, emergency sql.NullBool

	err := row.Scan(
		&r.ID,
		&r.MonitoringPointID,
		&methane,
		&co,
		&co2,
		&oxygen,
		&h2s,
		&temp,
		&humidity,
		&pressure,
		&airFlow,
		&dust,
		&ventilation,
		&emergency,
		&r.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	r.MethaneConcentration = floatPtr(methane)
	r.CarbonMonoxide = floatPtr(co)
	r.CarbonDioxide = floatPtr(co2)
	r.OxygenConcentration = floatPtr(oxygen)
	r.HydrogenSulfide = floatPtr(h2s)
	r.Temperature = floatPtr(temp)
	r.Humidity = floatPtr(humidity)
	r.Pressure = floatPtr(pressure)
	r.AirFlow = floatPtr(airFlow)
	r.DustConcentration = floatPtr(dust)
	r.VentilationStatus = boolPtr(ventilation)
	r.EmergencySystemStatus = boolPtr(emergency)
	return r, nil
}

func collectReadings(rows *sql.Rows) ([]*model.Reading, error) {
	defer rows.Close()

	var readings []*model.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return readings, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}
