package model

import (
	"errors"
	"fmt"
	"time"
)

// AlertStatus represents the lifecycle state of an alert
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusFalseAlarm   AlertStatus = "false_alarm"
)

// Valid reports whether s is a recognized status value.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusActive, AlertStatusAcknowledged, AlertStatusResolved, AlertStatusFalseAlarm:
		return true
	}
	return false
}

// AlertSeverity represents the severity level of an alert, ordered
// low < medium < high < critical.
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "low"
	AlertSeverityMedium   AlertSeverity = "medium"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Severities lists every severity in ascending order.
var Severities = []AlertSeverity{
	AlertSeverityLow,
	AlertSeverityMedium,
	AlertSeverityHigh,
	AlertSeverityCritical,
}

// Valid reports whether s is a recognized severity value.
func (s AlertSeverity) Valid() bool {
	switch s {
	case AlertSeverityLow, AlertSeverityMedium, AlertSeverityHigh, AlertSeverityCritical:
		return true
	}
	return false
}

// AlertType represents the category of a detected hazard
type AlertType string

const (
	AlertTypeDangerousAction     AlertType = "dangerous_action"
	AlertTypeEquipmentFailure    AlertType = "equipment_failure"
	AlertTypeEnvironmentalHazard AlertType = "environmental_hazard"
	AlertTypeSafetyViolation     AlertType = "safety_violation"
	AlertTypeSystemError         AlertType = "system_error"
)

// Valid reports whether t is a recognized alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertTypeDangerousAction, AlertTypeEquipmentFailure,
		AlertTypeEnvironmentalHazard, AlertTypeSafetyViolation, AlertTypeSystemError:
		return true
	}
	return false
}

// Alert represents one tracked hazard episode. Type, severity and
// detected_at are immutable after creation; everything else moves through
// the lifecycle manager.
type Alert struct {
	ID                int64         `json:"id"`
	MonitoringPointID int64         `json:"monitoring_point_id"`
	AlertType         AlertType     `json:"alert_type"`
	Severity          AlertSeverity `json:"severity"`
	Status            AlertStatus   `json:"status"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	ConfidenceScore   *float64      `json:"confidence_score,omitempty"`
	ImageURL          string        `json:"image_url,omitempty"`
	VideoURL          string        `json:"video_url,omitempty"`
	LocationDetails   string        `json:"location_details,omitempty"`
	EquipmentID       string        `json:"equipment_id,omitempty"`
	Notes             string        `json:"notes,omitempty"`

	DetectedAt     time.Time  `json:"detected_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *int64     `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     *int64     `json:"resolved_by,omitempty"`
}

// AlertDraft carries the fields accepted when opening a new alert.
type AlertDraft struct {
	MonitoringPointID int64         `json:"monitoring_point_id"`
	AlertType         AlertType     `json:"alert_type"`
	Severity          AlertSeverity `json:"severity"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	ConfidenceScore   *float64      `json:"confidence_score,omitempty"`
	ImageURL          string        `json:"image_url,omitempty"`
	VideoURL          string        `json:"video_url,omitempty"`
	LocationDetails   string        `json:"location_details,omitempty"`
	EquipmentID       string        `json:"equipment_id,omitempty"`
	Notes             string        `json:"notes,omitempty"`
}

// ErrInvalidAlert is returned when an alert draft or patch fails validation.
var ErrInvalidAlert = errors.New("invalid alert")

// Validate checks draft fields against their length and range limits.
func (d *AlertDraft) Validate() error {
	if !d.AlertType.Valid() {
		return fmt.Errorf("%w: unknown alert type %q", ErrInvalidAlert, d.AlertType)
	}
	if !d.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidAlert, d.Severity)
	}
	if len(d.Title) < 1 || len(d.Title) > 200 {
		return fmt.Errorf("%w: title must be 1-200 characters", ErrInvalidAlert)
	}
	if d.ConfidenceScore != nil && (*d.ConfidenceScore < 0 || *d.ConfidenceScore > 1) {
		return fmt.Errorf("%w: confidence_score must be within [0, 1]", ErrInvalidAlert)
	}
	if len(d.ImageURL) > 500 || len(d.VideoURL) > 500 {
		return fmt.Errorf("%w: media URL exceeds 500 characters", ErrInvalidAlert)
	}
	if len(d.LocationDetails) > 200 {
		return fmt.Errorf("%w: location_details exceeds 200 characters", ErrInvalidAlert)
	}
	if len(d.EquipmentID) > 100 {
		return fmt.Errorf("%w: equipment_id exceeds 100 characters", ErrInvalidAlert)
	}
	return nil
}

// AlertPatch names the fields a generic update may change. Only non-nil
// fields are applied; severity and type stay immutable by omission.
type AlertPatch struct {
	Status      *AlertStatus `json:"status,omitempty"`
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
	ImageURL    *string      `json:"image_url,omitempty"`
	VideoURL    *string      `json:"video_url,omitempty"`

	// ActorID attributes the acknowledge/resolve stamping when the patch
	// moves the status. Optional; timestamps are stamped either way.
	ActorID *int64 `json:"actor_id,omitempty"`
}

// Validate checks patch fields against the same limits as AlertDraft.
func (p *AlertPatch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAlert, *p.Status)
	}
	if p.Title != nil && (len(*p.Title) < 1 || len(*p.Title) > 200) {
		return fmt.Errorf("%w: title must be 1-200 characters", ErrInvalidAlert)
	}
	if p.ImageURL != nil && len(*p.ImageURL) > 500 {
		return fmt.Errorf("%w: image_url exceeds 500 characters", ErrInvalidAlert)
	}
	if p.VideoURL != nil && len(*p.VideoURL) > 500 {
		return fmt.Errorf("%w: video_url exceeds 500 characters", ErrInvalidAlert)
	}
	return nil
}

// AlertSummary is the derived dashboard view over a set of alerts.
type AlertSummary struct {
	TotalAlerts      int                   `json:"total_alerts"`
	ActiveAlerts     int                   `json:"active_alerts"`
	CriticalAlerts   int                   `json:"critical_alerts"`
	AlertsBySeverity map[AlertSeverity]int `json:"alerts_by_severity"`
	RecentAlerts     []*Alert              `json:"recent_alerts"`
}
