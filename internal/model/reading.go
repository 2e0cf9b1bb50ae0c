package model

import (
	"errors"
	"fmt"
	"time"
)

// Sensor field names recognized by statistics and trend queries.
const (
	FieldMethaneConcentration = "methane_concentration"
	FieldCarbonMonoxide       = "carbon_monoxide"
	FieldCarbonDioxide        = "carbon_dioxide"
	FieldOxygenConcentration  = "oxygen_concentration"
	FieldHydrogenSulfide      = "hydrogen_sulfide"
	FieldTemperature          = "temperature"
	FieldHumidity             = "humidity"
	FieldPressure             = "pressure"
	FieldAirFlow              = "air_flow"
	FieldDustConcentration    = "dust_concentration"
)

// SensorFields lists every sensor field in a stable order.
var SensorFields = []string{
	FieldMethaneConcentration,
	FieldCarbonMonoxide,
	FieldCarbonDioxide,
	FieldOxygenConcentration,
	FieldHydrogenSulfide,
	FieldTemperature,
	FieldHumidity,
	FieldPressure,
	FieldAirFlow,
	FieldDustConcentration,
}

// Reading represents one timestamped snapshot of environmental sensor values
// at a monitoring point. Readings are immutable facts once recorded.
type Reading struct {
	ID                int64 `json:"id"`
	MonitoringPointID int64 `json:"monitoring_point_id"`

	// Gas concentrations
	MethaneConcentration *float64 `json:"methane_concentration,omitempty"` // %
	CarbonMonoxide       *float64 `json:"carbon_monoxide,omitempty"`       // ppm
	CarbonDioxide        *float64 `json:"carbon_dioxide,omitempty"`        // ppm
	OxygenConcentration  *float64 `json:"oxygen_concentration,omitempty"`  // %
	HydrogenSulfide      *float64 `json:"hydrogen_sulfide,omitempty"`      // ppm

	// Environmental parameters
	Temperature       *float64 `json:"temperature,omitempty"` // °C
	Humidity          *float64 `json:"humidity,omitempty"`    // %
	Pressure          *float64 `json:"pressure,omitempty"`    // hPa
	AirFlow           *float64 `json:"air_flow,omitempty"`    // m/s
	DustConcentration *float64 `json:"dust_concentration,omitempty"`

	// System status flags
	VentilationStatus     *bool `json:"ventilation_status,omitempty"`
	EmergencySystemStatus *bool `json:"emergency_system_status,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// Field returns the value of the named sensor field, or nil when the field
// was not reported. Unknown names return false.
func (r *Reading) Field(name string) (*float64, bool) {
	switch name {
	case FieldMethaneConcentration:
		return r.MethaneConcentration, true
	case FieldCarbonMonoxide:
		return r.CarbonMonoxide, true
	case FieldCarbonDioxide:
		return r.CarbonDioxide, true
	case FieldOxygenConcentration:
		return r.OxygenConcentration, true
	case FieldHydrogenSulfide:
		return r.HydrogenSulfide, true
	case FieldTemperature:
		return r.Temperature, true
	case FieldHumidity:
		return r.Humidity, true
	case FieldPressure:
		return r.Pressure, true
	case FieldAirFlow:
		return r.AirFlow, true
	case FieldDustConcentration:
		return r.DustConcentration, true
	default:
		return nil, false
	}
}

// ReadingDraft carries the fields accepted when recording a new reading.
type ReadingDraft struct {
	MonitoringPointID     int64    `json:"monitoring_point_id"`
	MethaneConcentration  *float64 `json:"methane_concentration,omitempty"`
	CarbonMonoxide        *float64 `json:"carbon_monoxide,omitempty"`
	CarbonDioxide         *float64 `json:"carbon_dioxide,omitempty"`
	OxygenConcentration   *float64 `json:"oxygen_concentration,omitempty"`
	HydrogenSulfide       *float64 `json:"hydrogen_sulfide,omitempty"`
	Temperature           *float64 `json:"temperature,omitempty"`
	Humidity              *float64 `json:"humidity,omitempty"`
	Pressure              *float64 `json:"pressure,omitempty"`
	AirFlow               *float64 `json:"air_flow,omitempty"`
	DustConcentration     *float64 `json:"dust_concentration,omitempty"`
	VentilationStatus     *bool    `json:"ventilation_status,omitempty"`
	EmergencySystemStatus *bool    `json:"emergency_system_status,omitempty"`
}

// ErrInvalidReading is returned when a reading draft fails range validation.
var ErrInvalidReading = errors.New("invalid reading")

// Validate checks every supplied sensor value against its physical range.
// Absent fields are always valid.
func (d *ReadingDraft) Validate() error {
	checks := []struct {
		name     string
		value    *float64
		min, max float64
	}{
		{FieldMethaneConcentration, d.MethaneConcentration, 0, 100},
		{FieldCarbonMonoxide, d.CarbonMonoxide, 0, maxUnbounded},
		{FieldCarbonDioxide, d.CarbonDioxide, 0, maxUnbounded},
		{FieldOxygenConcentration, d.OxygenConcentration, 0, 100},
		{FieldHydrogenSulfide, d.HydrogenSulfide, 0, maxUnbounded},
		{FieldTemperature, d.Temperature, -50, 100},
		{FieldHumidity, d.Humidity, 0, 100},
		{FieldPressure, d.Pressure, 0, maxUnbounded},
		{FieldAirFlow, d.AirFlow, 0, maxUnbounded},
		{FieldDustConcentration, d.DustConcentration, 0, maxUnbounded},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		if *c.value < c.min || *c.value > c.max {
			return fmt.Errorf("%w: %s=%v out of range [%v, %v]",
				ErrInvalidReading, c.name, *c.value, c.min, c.max)
		}
	}
	return nil
}

const maxUnbounded = 1e12

// FieldStats summarizes the non-null values of one sensor field in a window.
type FieldStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// EnvironmentStats is the windowed statistics result for one monitoring point.
// Fields holds an entry only for sensor fields that reported at least one
// value inside the window.
type EnvironmentStats struct {
	Count  int                   `json:"count"`
	Start  time.Time             `json:"start"`
	End    time.Time             `json:"end"`
	Fields map[string]FieldStats `json:"fields"`
}

// TrendPoint is one sample of a per-field trend series.
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Trend is a time-ordered series of one sensor field at one monitoring point.
type Trend struct {
	MonitoringPointID int64        `json:"monitoring_point_id"`
	Field             string       `json:"field"`
	Hours             int          `json:"hours"`
	DataPoints        int          `json:"data_points"`
	Points            []TrendPoint `json:"points"`
}

// PointStats pairs a monitoring point with its windowed statistics.
// Stats is nil when the point recorded no readings inside the window.
type PointStats struct {
	MonitoringPointID int64             `json:"monitoring_point_id"`
	Name              string            `json:"name"`
	Location          string            `json:"location,omitempty"`
	Stats             *EnvironmentStats `json:"statistics,omitempty"`
}

// MineStats aggregates per-point statistics across one mine.
type MineStats struct {
	MineID     int64        `json:"mine_id"`
	PointCount int          `json:"monitoring_points_count"`
	Hours      int          `json:"time_range_hours"`
	Points     []PointStats `json:"monitoring_points"`
}
