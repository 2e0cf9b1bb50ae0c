package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/model"
	"github.com/t77yq/minewatch/internal/testutil"
)

func TestSummary_Empty(t *testing.T) {
	manager, _ := newTestManager(t)

	summary, err := manager.Summary(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, summary.TotalAlerts)
	require.Equal(t, 0, summary.ActiveAlerts)
	require.Equal(t, 0, summary.CriticalAlerts)
	require.Empty(t, summary.RecentAlerts)

	// All four severities are present even when zero
	require.Len(t, summary.AlertsBySeverity, 4)
	for _, severity := range model.Severities {
		count, ok := summary.AlertsBySeverity[severity]
		require.True(t, ok)
		require.Equal(t, 0, count)
	}
}

func TestSummary_Counts(t *testing.T) {
	manager, point := newTestManager(t)
	ctx := context.Background()

	severities := []model.AlertSeverity{
		model.AlertSeverityLow,
		model.AlertSeverityCritical,
		model.AlertSeverityCritical,
		model.AlertSeverityHigh,
	}
	var created []*model.Alert
	for _, severity := range severities {
		draft := testDraft(point.ID)
		draft.Severity = severity
		alert, err := manager.Create(ctx, draft)
		require.NoError(t, err)
		created = append(created, alert)
	}

	// Resolve one of the critical alerts; it no longer counts as
	// critical-active but still counts in the severity breakdown.
	_, err := manager.Resolve(ctx, created[1].ID, 4)
	require.NoError(t, err)

	summary, err := manager.Summary(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 4, summary.TotalAlerts)
	require.Equal(t, 3, summary.ActiveAlerts)
	require.Equal(t, 1, summary.CriticalAlerts)
	require.Equal(t, 2, summary.AlertsBySeverity[model.AlertSeverityCritical])
	require.Equal(t, 1, summary.AlertsBySeverity[model.AlertSeverityLow])
	require.Equal(t, 1, summary.AlertsBySeverity[model.AlertSeverityHigh])
	require.Equal(t, 0, summary.AlertsBySeverity[model.AlertSeverityMedium])
}

func TestSummary_RecentOrderAndCap(t *testing.T) {
	manager, point := newTestManager(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		tick := base.Add(time.Duration(i) * time.Minute)
		manager.now = func() time.Time { return tick }
		_, err := manager.Create(ctx, testDraft(point.ID))
		require.NoError(t, err)
	}

	summary, err := manager.Summary(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 12, summary.TotalAlerts)
	require.Len(t, summary.RecentAlerts, 10)

	// Newest first
	for i := 1; i < len(summary.RecentAlerts); i++ {
		prev := summary.RecentAlerts[i-1].DetectedAt
		cur := summary.RecentAlerts[i].DetectedAt
		require.False(t, prev.Before(cur))
	}
}

func TestSummary_MineScoped(t *testing.T) {
	store, point := testutil.NewStore(t)
	manager := NewManager(zap.NewNop(), store)
	ctx := context.Background()

	// Second mine with its own point and alert
	otherMine := &model.Mine{Name: "South Shaft"}
	require.NoError(t, store.CreateMine(ctx, otherMine))
	otherPoint := testutil.AddPoint(t, store, otherMine.ID, "Shaft B-1")

	_, err := manager.Create(ctx, testDraft(point.ID))
	require.NoError(t, err)
	_, err = manager.Create(ctx, testDraft(point.ID))
	require.NoError(t, err)
	_, err = manager.Create(ctx, testDraft(otherPoint.ID))
	require.NoError(t, err)

	all, err := manager.Summary(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 3, all.TotalAlerts)

	firstMineID := point.MineID
	scoped, err := manager.Summary(ctx, &firstMineID)
	require.NoError(t, err)
	require.Equal(t, 2, scoped.TotalAlerts)
	require.Len(t, scoped.RecentAlerts, 2)

	otherID := otherMine.ID
	scoped, err = manager.Summary(ctx, &otherID)
	require.NoError(t, err)
	require.Equal(t, 1, scoped.TotalAlerts)
}
