// Package threshold evaluates environment readings against the fixed mine
// safety limits. Evaluation is pure: no state, no side effects, and absent
// sensor fields never trigger.
package threshold

import (
	"fmt"

	"github.com/t77yq/minewatch/internal/model"
)

// Fixed safety thresholds. Comparisons are strict: a value exactly at the
// limit does not breach.
const (
	MethaneMax     = 1.0  // %
	TemperatureMax = 40.0 // °C
	OxygenMin      = 19.5 // %
	CarbonMonoxMax = 50.0 // ppm
)

// Breach describes one threshold violation found in a reading.
type Breach struct {
	Field     string              `json:"field"`
	Value     float64             `json:"value"`
	Threshold float64             `json:"threshold"`
	Severity  model.AlertSeverity `json:"severity"`
	Message   string              `json:"message"`
}

// Evaluate checks one reading against every threshold and returns the set of
// breaches. Each predicate is evaluated independently; simultaneous breaches
// are all reported.
func Evaluate(r *model.Reading) []Breach {
	var breaches []Breach

	if v := r.MethaneConcentration; v != nil && *v > MethaneMax {
		breaches = append(breaches, Breach{
			Field:     model.FieldMethaneConcentration,
			Value:     *v,
			Threshold: MethaneMax,
			Severity:  model.AlertSeverityCritical,
			Message:   fmt.Sprintf("methane concentration %.2f%% exceeds %.2f%%", *v, MethaneMax),
		})
	}
	if v := r.Temperature; v != nil && *v > TemperatureMax {
		breaches = append(breaches, Breach{
			Field:     model.FieldTemperature,
			Value:     *v,
			Threshold: TemperatureMax,
			Severity:  model.AlertSeverityHigh,
			Message:   fmt.Sprintf("temperature %.1f°C exceeds %.1f°C", *v, TemperatureMax),
		})
	}
	if v := r.OxygenConcentration; v != nil && *v < OxygenMin {
		breaches = append(breaches, Breach{
			Field:     model.FieldOxygenConcentration,
			Value:     *v,
			Threshold: OxygenMin,
			Severity:  model.AlertSeverityCritical,
			Message:   fmt.Sprintf("oxygen concentration %.2f%% below %.2f%%", *v, OxygenMin),
		})
	}
	if v := r.CarbonMonoxide; v != nil && *v > CarbonMonoxMax {
		breaches = append(breaches, Breach{
			Field:     model.FieldCarbonMonoxide,
			Value:     *v,
			Threshold: CarbonMonoxMax,
			Severity:  model.AlertSeverityHigh,
			Message:   fmt.Sprintf("carbon monoxide %.1fppm exceeds %.1fppm", *v, CarbonMonoxMax),
		})
	}

	return breaches
}

// Draft builds an alert draft for a breach detected at a monitoring point.
// The caller decides whether to open one alert per breach or aggregate.
func (b Breach) Draft(pointID int64) model.AlertDraft {
	return model.AlertDraft{
		MonitoringPointID: pointID,
		AlertType:         model.AlertTypeEnvironmentalHazard,
		Severity:          b.Severity,
		Title:             fmt.Sprintf("Environmental hazard: %s", b.Field),
		Description:       b.Message,
	}
}
