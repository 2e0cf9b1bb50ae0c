package model

import "time"

// Mine represents a mine site. Only the fields the monitoring core needs are
// kept here; full mine management lives in an external system.
type Mine struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// MonitoringPoint is a fixed sensor/camera location within a mine.
type MonitoringPoint struct {
	ID        int64     `json:"id"`
	MineID    int64     `json:"mine_id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	CameraID  string    `json:"camera_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
