package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/model"
	"github.com/t77yq/minewatch/internal/telemetry"
	"github.com/t77yq/minewatch/internal/threshold"
)

func sampleEvent() *telemetry.AlertEvent {
	return &telemetry.AlertEvent{
		EventID: "evt-1",
		Alert: &model.Alert{
			ID:                42,
			MonitoringPointID: 7,
			AlertType:         model.AlertTypeEnvironmentalHazard,
			Severity:          model.AlertSeverityCritical,
			Status:            model.AlertStatusActive,
			Title:             "Environmental hazard: methane_concentration",
			DetectedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		Breach: &threshold.Breach{
			Field:     model.FieldMethaneConcentration,
			Value:     1.8,
			Threshold: threshold.MethaneMax,
			Severity:  model.AlertSeverityCritical,
		},
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSubjectAndBody(t *testing.T) {
	event := sampleEvent()

	require.Equal(t, "[critical] Environmental hazard: methane_concentration", Subject(event))

	body := Body(event)
	require.Contains(t, body, "Alert #42")
	require.Contains(t, body, "monitoring point 7")
	require.Contains(t, body, "methane_concentration = 1.8 (threshold 1)")
}

func TestSendWebhook(t *testing.T) {
	received := make(chan telemetry.AlertEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event telemetry.AlertEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		received <- event
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	config := Config{}
	config.Webhook.Enabled = true
	config.Webhook.URL = srv.URL
	n := NewNotifier(zap.NewNop(), nil, config)

	require.NoError(t, n.sendWebhook(sampleEvent()))

	event := <-received
	require.Equal(t, "evt-1", event.EventID)
	require.Equal(t, int64(42), event.Alert.ID)
}

func TestSendWebhook_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	config := Config{}
	config.Webhook.URL = srv.URL
	n := NewNotifier(zap.NewNop(), nil, config)

	require.Error(t, n.sendWebhook(sampleEvent()))
}
