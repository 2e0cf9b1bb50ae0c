// Package telemetry ingests environment readings, evaluates them against
// the safety thresholds and opens alerts for every breach. Readings arrive
// either through direct calls or over the NATS telemetry stream.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/alerts"
	"github.com/t77yq/minewatch/internal/model"
	"github.com/t77yq/minewatch/internal/storage"
	"github.com/t77yq/minewatch/internal/threshold"
)

const (
	telemetryStreamName = "TELEMETRY"
	readingSubject      = "telemetry.reading"
	alertStreamName     = "ALERTS"
	alertSubjectPrefix  = "alert."

	streamMaxAge  = 24 * time.Hour
	ingestTimeout = 10 * time.Second
)

// AlertEvent is published on the alert stream whenever a breach opens a new
// alert. Consumers (notification dispatch, dashboards) key on the subject
// alert.<type>.
type AlertEvent struct {
	EventID   string            `json:"event_id"`
	Alert     *model.Alert      `json:"alert"`
	Breach    *threshold.Breach `json:"breach,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Ingestor validates and persists incoming readings and drives threshold
// evaluation. One alert is opened per breach; sustained breaches across
// consecutive readings are not coalesced.
type Ingestor struct {
	logger *zap.Logger
	store  *storage.Store
	alerts *alerts.Manager
	js     nats.JetStreamContext
	now    func() time.Time
	sub    *nats.Subscription
}

// NewIngestor creates a reading ingestor. js may be nil when the NATS bus
// is not in play; alert events are then simply not published.
func NewIngestor(logger *zap.Logger, store *storage.Store, manager *alerts.Manager, js nats.JetStreamContext) *Ingestor {
	return &Ingestor{
		logger: logger.Named("telemetry"),
		store:  store,
		alerts: manager,
		js:     js,
		now:    time.Now,
	}
}

// Ingest validates a reading draft, stores it and evaluates thresholds.
// Every breach opens one environmental-hazard alert. Returns the stored
// reading and the breach set.
func (i *Ingestor) Ingest(ctx context.Context, draft *model.ReadingDraft) (*model.Reading, []threshold.Breach, error) {
	if err := draft.Validate(); err != nil {
		return nil, nil, err
	}
	if _, err := i.store.GetMonitoringPoint(ctx, draft.MonitoringPointID); err != nil {
		return nil, nil, err
	}

	reading := &model.Reading{
		MonitoringPointID:     draft.MonitoringPointID,
		MethaneConcentration:  draft.MethaneConcentration,
		CarbonMonoxide:        draft.CarbonMonoxide,
		CarbonDioxide:         draft.CarbonDioxide,
		OxygenConcentration:   draft.OxygenConcentration,
		HydrogenSulfide:       draft.HydrogenSulfide,
		Temperature:           draft.Temperature,
		Humidity:              draft.Humidity,
		Pressure:              draft.Pressure,
		AirFlow:               draft.AirFlow,
		DustConcentration:     draft.DustConcentration,
		VentilationStatus:     draft.VentilationStatus,
		EmergencySystemStatus: draft.EmergencySystemStatus,
		RecordedAt:            i.now(),
	}

	if err := i.store.InsertReading(ctx, reading); err != nil {
		return nil, nil, err
	}

	breaches := threshold.Evaluate(reading)
	for idx := range breaches {
		breach := breaches[idx]
		draft := breach.Draft(reading.MonitoringPointID)
		alert, err := i.alerts.Create(ctx, &draft)
		if err != nil {
			// The reading itself is already stored; surface the failure
			return reading, breaches, fmt.Errorf("failed to open alert for %s breach: %w", breach.Field, err)
		}
		i.publishAlert(alert, &breach)
	}

	if len(breaches) > 0 {
		i.logger.Warn("Reading breached safety thresholds",
			zap.Int64("reading_id", reading.ID),
			zap.Int64("monitoring_point_id", reading.MonitoringPointID),
			zap.Int("breaches", len(breaches)))
	}

	return reading, breaches, nil
}

// Hazardous lists stored readings at a monitoring point that breach any
// safety threshold, newest first.
func (i *Ingestor) Hazardous(ctx context.Context, pointID int64) ([]*model.Reading, error) {
	if _, err := i.store.GetMonitoringPoint(ctx, pointID); err != nil {
		return nil, err
	}
	return i.store.HazardousReadings(ctx, pointID,
		threshold.MethaneMax, threshold.TemperatureMax, threshold.OxygenMin, threshold.CarbonMonoxMax)
}

// Start sets up the telemetry and alert streams and subscribes to the
// reading intake subject with a durable consumer.
func (i *Ingestor) Start(ctx context.Context) error {
	if i.js == nil {
		return fmt.Errorf("no JetStream context configured")
	}

	for _, cfg := range []*nats.StreamConfig{
		{
			Name:     telemetryStreamName,
			Subjects: []string{"telemetry.*"},
			Storage:  nats.FileStorage,
			MaxAge:   streamMaxAge,
		},
		{
			Name:     alertStreamName,
			Subjects: []string{"alert.*"},
			Storage:  nats.FileStorage,
		},
	} {
		if _, err := i.js.AddStream(cfg, nats.Context(ctx)); err != nil {
			if err == nats.ErrStreamNameAlreadyInUse {
				i.logger.Info("Stream already exists", zap.String("stream", cfg.Name))
				continue
			}
			return fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
		}
		i.logger.Info("Stream created", zap.String("stream", cfg.Name))
	}

	sub, err := i.js.Subscribe(readingSubject, i.handleReading, nats.Durable("telemetry-ingest"))
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", readingSubject, err)
	}
	i.sub = sub

	i.logger.Info("Telemetry ingestor started")
	return nil
}

// Stop unsubscribes from the intake subject.
func (i *Ingestor) Stop() {
	if i.sub != nil {
		i.sub.Unsubscribe()
	}
}

func (i *Ingestor) handleReading(msg *nats.Msg) {
	var draft model.ReadingDraft
	if err := json.Unmarshal(msg.Data, &draft); err != nil {
		i.logger.Error("Failed to unmarshal reading", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	if _, _, err := i.Ingest(ctx, &draft); err != nil {
		i.logger.Error("Failed to ingest reading",
			zap.Int64("monitoring_point_id", draft.MonitoringPointID),
			zap.Error(err))
		return
	}
	msg.Ack()
}

func (i *Ingestor) publishAlert(alert *model.Alert, breach *threshold.Breach) {
	if i.js == nil {
		return
	}

	event := AlertEvent{
		EventID:   uuid.New().String(),
		Alert:     alert,
		Breach:    breach,
		Timestamp: i.now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		i.logger.Error("Failed to marshal alert event", zap.Error(err))
		return
	}

	if _, err := i.js.Publish(alertSubjectPrefix+string(alert.AlertType), data); err != nil {
		i.logger.Error("Failed to publish alert event",
			zap.Int64("alert_id", alert.ID),
			zap.Error(err))
		return
	}

	i.logger.Info("Alert event published",
		zap.String("event_id", event.EventID),
		zap.Int64("alert_id", alert.ID),
		zap.String("severity", string(alert.Severity)))
}
