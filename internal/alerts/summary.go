package alerts

import (
	"context"

	"github.com/t77yq/minewatch/internal/model"
)

// recentAlertCount is how many of the latest alerts a summary carries.
const recentAlertCount = 10

// Summary computes dashboard counts and breakdowns over the alert set,
// optionally restricted to one mine's monitoring points. The severity
// breakdown always carries all four severities, zero-filled when absent.
func (m *Manager) Summary(ctx context.Context, mineID *int64) (*model.AlertSummary, error) {
	total, err := m.store.CountAlerts(ctx, mineID, nil, nil)
	if err != nil {
		return nil, err
	}

	active := model.AlertStatusActive
	activeCount, err := m.store.CountAlerts(ctx, mineID, &active, nil)
	if err != nil {
		return nil, err
	}

	critical := model.AlertSeverityCritical
	criticalActive, err := m.store.CountAlerts(ctx, mineID, &active, &critical)
	if err != nil {
		return nil, err
	}

	bySeverity := make(map[model.AlertSeverity]int, len(model.Severities))
	for _, severity := range model.Severities {
		sev := severity
		count, err := m.store.CountAlerts(ctx, mineID, nil, &sev)
		if err != nil {
			return nil, err
		}
		bySeverity[severity] = count
	}

	recent, err := m.store.RecentAlerts(ctx, mineID, recentAlertCount)
	if err != nil {
		return nil, err
	}

	return &model.AlertSummary{
		TotalAlerts:      total,
		ActiveAlerts:     activeCount,
		CriticalAlerts:   criticalActive,
		AlertsBySeverity: bySeverity,
		RecentAlerts:     recent,
	}, nil
}
