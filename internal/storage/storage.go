package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a referenced mine, monitoring point,
	// reading or alert does not exist
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRange is returned when a time range query has start >= end
	ErrInvalidRange = errors.New("invalid time range")
)

// Store provides SQLite-backed persistence for mines, monitoring points,
// environment readings and alerts.
type Store struct {
	logger *zap.Logger
	db     *sql.DB
}

// Open opens (or creates) the database at dbPath and bootstraps the schema.
func Open(logger *zap.Logger, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		logger: logger,
		db:     db,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize creates the necessary tables if they don't exist
func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS mines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			location TEXT
		);
		CREATE TABLE IF NOT EXISTS monitoring_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mine_id INTEGER NOT NULL REFERENCES mines(id),
			name TEXT NOT NULL,
			location TEXT,
			camera_id TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_monitoring_points_mine_id ON monitoring_points(mine_id);
		CREATE TABLE IF NOT EXISTS readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			monitoring_point_id INTEGER NOT NULL REFERENCES monitoring_points(id),
			methane_concentration REAL,
			carbon_monoxide REAL,
			carbon_dioxide REAL,
			oxygen_concentration REAL,
			hydrogen_sulfide REAL,
			temperature REAL,
			humidity REAL,
			pressure REAL,
			air_flow REAL,
			dust_concentration REAL,
			ventilation_status INTEGER,
			emergency_system_status INTEGER,
			recorded_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_readings_point_recorded ON readings(monitoring_point_id, recorded_at);
		CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			monitoring_point_id INTEGER NOT NULL REFERENCES monitoring_points(id),
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			title TEXT NOT NULL,
			description TEXT,
			confidence_score REAL,
			image_url TEXT,
			video_url TEXT,
			location_details TEXT,
			equipment_id TEXT,
			notes TEXT,
			detected_at DATETIME NOT NULL,
			acknowledged_at DATETIME,
			acknowledged_by INTEGER,
			resolved_at DATETIME,
			resolved_by INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_point_id ON alerts(monitoring_point_id);
		CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
		CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts(severity);
		CREATE INDEX IF NOT EXISTS idx_alerts_detected_at ON alerts(detected_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
