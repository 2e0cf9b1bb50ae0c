package alerts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/model"
	"github.com/t77yq/minewatch/internal/storage"
)

// Manager owns alert state transitions and their side effects: timestamps
// and actor attribution. All mutations are single-row store updates; the
// store's transaction isolation is the only concurrency guard.
type Manager struct {
	logger *zap.Logger
	store  *storage.Store
	now    func() time.Time
}

// NewManager creates a new alert lifecycle manager.
func NewManager(logger *zap.Logger, store *storage.Store) *Manager {
	return &Manager{
		logger: logger.Named("alerts"),
		store:  store,
		now:    time.Now,
	}
}

// Create opens a new alert in the active state. The referenced monitoring
// point must exist.
func (m *Manager) Create(ctx context.Context, draft *model.AlertDraft) (*model.Alert, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if _, err := m.store.GetMonitoringPoint(ctx, draft.MonitoringPointID); err != nil {
		return nil, err
	}

	alert := &model.Alert{
		MonitoringPointID: draft.MonitoringPointID,
		AlertType:         draft.AlertType,
		Severity:          draft.Severity,
		Status:            model.AlertStatusActive,
		Title:             draft.Title,
		Description:       draft.Description,
		ConfidenceScore:   draft.ConfidenceScore,
		ImageURL:          draft.ImageURL,
		VideoURL:          draft.VideoURL,
		LocationDetails:   draft.LocationDetails,
		EquipmentID:       draft.EquipmentID,
		Notes:             draft.Notes,
		DetectedAt:        m.now(),
	}

	if err := m.store.InsertAlert(ctx, alert); err != nil {
		return nil, err
	}

	m.logger.Info("Alert created",
		zap.Int64("id", alert.ID),
		zap.Int64("monitoring_point_id", alert.MonitoringPointID),
		zap.String("type", string(alert.AlertType)),
		zap.String("severity", string(alert.Severity)))

	return alert, nil
}

// Acknowledge moves an active alert to acknowledged and stamps the
// acknowledgment fields. Fails with ErrNotActive from any other state.
func (m *Manager) Acknowledge(ctx context.Context, alertID, actorID int64) (*model.Alert, error) {
	alert, err := m.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Status != model.AlertStatusActive {
		return nil, fmt.Errorf("alert %d in status %s: %w", alertID, alert.Status, ErrNotActive)
	}

	ackAt := m.now()
	alert.Status = model.AlertStatusAcknowledged
	alert.AcknowledgedAt = &ackAt
	alert.AcknowledgedBy = &actorID

	if err := m.store.UpdateAlert(ctx, alert); err != nil {
		return nil, err
	}

	m.logger.Info("Alert acknowledged",
		zap.Int64("id", alert.ID),
		zap.Int64("actor_id", actorID))

	return alert, nil
}

// Resolve moves an alert to the resolved terminal state and stamps the
// resolution fields. Any non-resolved status may transition.
func (m *Manager) Resolve(ctx context.Context, alertID, actorID int64) (*model.Alert, error) {
	alert, err := m.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Status == model.AlertStatusResolved {
		return nil, fmt.Errorf("alert %d: %w", alertID, ErrAlreadyResolved)
	}

	resolvedAt := m.now()
	alert.Status = model.AlertStatusResolved
	alert.ResolvedAt = &resolvedAt
	alert.ResolvedBy = &actorID

	if err := m.store.UpdateAlert(ctx, alert); err != nil {
		return nil, err
	}

	m.logger.Info("Alert resolved",
		zap.Int64("id", alert.ID),
		zap.Int64("actor_id", actorID))

	return alert, nil
}

// Update applies a partial field patch. When the patch moves the status it
// mirrors the dedicated operations: active→acknowledged stamps the
// acknowledgment fields, any→resolved stamps the resolution fields, so that
// generic updates stay consistent with the state machine.
func (m *Manager) Update(ctx context.Context, alertID int64, patch *model.AlertPatch) (*model.Alert, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	alert, err := m.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && *patch.Status != alert.Status {
		switch *patch.Status {
		case model.AlertStatusAcknowledged:
			if alert.Status == model.AlertStatusActive {
				ackAt := m.now()
				alert.AcknowledgedAt = &ackAt
				alert.AcknowledgedBy = patch.ActorID
			}
		case model.AlertStatusResolved:
			resolvedAt := m.now()
			alert.ResolvedAt = &resolvedAt
			alert.ResolvedBy = patch.ActorID
		}
		alert.Status = *patch.Status
	}
	if patch.Title != nil {
		alert.Title = *patch.Title
	}
	if patch.Description != nil {
		alert.Description = *patch.Description
	}
	if patch.Notes != nil {
		alert.Notes = *patch.Notes
	}
	if patch.ImageURL != nil {
		alert.ImageURL = *patch.ImageURL
	}
	if patch.VideoURL != nil {
		alert.VideoURL = *patch.VideoURL
	}

	if err := m.store.UpdateAlert(ctx, alert); err != nil {
		return nil, err
	}

	m.logger.Info("Alert updated", zap.Int64("id", alert.ID))
	return alert, nil
}

// Delete removes an alert unconditionally. Administrative override only.
func (m *Manager) Delete(ctx context.Context, alertID int64) error {
	if err := m.store.DeleteAlert(ctx, alertID); err != nil {
		return err
	}
	m.logger.Info("Alert deleted", zap.Int64("id", alertID))
	return nil
}

// Get fetches a single alert by ID.
func (m *Manager) Get(ctx context.Context, alertID int64) (*model.Alert, error) {
	return m.store.GetAlert(ctx, alertID)
}

// List fetches alerts matching the filters with AND semantics.
func (m *Manager) List(ctx context.Context, filters storage.AlertFilters) ([]*model.Alert, error) {
	return m.store.ListAlerts(ctx, filters)
}

// Active fetches every currently active alert, optionally scoped to a mine.
func (m *Manager) Active(ctx context.Context, mineID *int64) ([]*model.Alert, error) {
	return m.store.ActiveAlerts(ctx, mineID)
}

// ActiveCritical fetches alerts that are both active and critical,
// optionally scoped to a mine.
func (m *Manager) ActiveCritical(ctx context.Context, mineID *int64) ([]*model.Alert, error) {
	return m.store.ActiveCriticalAlerts(ctx, mineID)
}
