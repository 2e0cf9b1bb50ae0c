package threshold

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/t77yq/minewatch/internal/model"
)

func f(v float64) *float64 { return &v }

func TestEvaluate_NoFields(t *testing.T) {
	breaches := Evaluate(&model.Reading{})
	require.Empty(t, breaches)
}

func TestEvaluate_MethaneBoundary(t *testing.T) {
	// Exactly at the limit does not breach
	breaches := Evaluate(&model.Reading{MethaneConcentration: f(1.0)})
	require.Empty(t, breaches)

	breaches = Evaluate(&model.Reading{MethaneConcentration: f(1.01)})
	require.Len(t, breaches, 1)
	require.Equal(t, model.FieldMethaneConcentration, breaches[0].Field)
	require.Equal(t, model.AlertSeverityCritical, breaches[0].Severity)
	require.Equal(t, MethaneMax, breaches[0].Threshold)
}

func TestEvaluate_OxygenBoundary(t *testing.T) {
	breaches := Evaluate(&model.Reading{OxygenConcentration: f(19.5)})
	require.Empty(t, breaches)

	breaches = Evaluate(&model.Reading{OxygenConcentration: f(19.49)})
	require.Len(t, breaches, 1)
	require.Equal(t, model.FieldOxygenConcentration, breaches[0].Field)
}

func TestEvaluate_TemperatureBoundary(t *testing.T) {
	breaches := Evaluate(&model.Reading{Temperature: f(40.0)})
	require.Empty(t, breaches)

	breaches = Evaluate(&model.Reading{Temperature: f(40.1)})
	require.Len(t, breaches, 1)
	require.Equal(t, model.FieldTemperature, breaches[0].Field)
	require.Equal(t, model.AlertSeverityHigh, breaches[0].Severity)
}

func TestEvaluate_CarbonMonoxideBoundary(t *testing.T) {
	breaches := Evaluate(&model.Reading{CarbonMonoxide: f(50.0)})
	require.Empty(t, breaches)

	breaches = Evaluate(&model.Reading{CarbonMonoxide: f(50.5)})
	require.Len(t, breaches, 1)
	require.Equal(t, model.FieldCarbonMonoxide, breaches[0].Field)
}

func TestEvaluate_MultipleBreaches(t *testing.T) {
	reading := &model.Reading{
		MethaneConcentration: f(1.5),
		Temperature:          f(45.0),
		OxygenConcentration:  f(18.0),
		CarbonMonoxide:       f(60.0),
		Humidity:             f(80.0), // no threshold, never triggers
	}

	breaches := Evaluate(reading)
	require.Len(t, breaches, 4)

	fields := make(map[string]bool)
	for _, b := range breaches {
		fields[b.Field] = true
	}
	require.True(t, fields[model.FieldMethaneConcentration])
	require.True(t, fields[model.FieldTemperature])
	require.True(t, fields[model.FieldOxygenConcentration])
	require.True(t, fields[model.FieldCarbonMonoxide])
}

func TestEvaluate_Deterministic(t *testing.T) {
	reading := &model.Reading{MethaneConcentration: f(2.0)}
	first := Evaluate(reading)
	second := Evaluate(reading)
	require.Equal(t, first, second)
}

func TestBreach_Draft(t *testing.T) {
	breaches := Evaluate(&model.Reading{MethaneConcentration: f(1.5)})
	require.Len(t, breaches, 1)

	draft := breaches[0].Draft(42)
	require.Equal(t, int64(42), draft.MonitoringPointID)
	require.Equal(t, model.AlertTypeEnvironmentalHazard, draft.AlertType)
	require.Equal(t, model.AlertSeverityCritical, draft.Severity)
	require.NoError(t, draft.Validate())
}
