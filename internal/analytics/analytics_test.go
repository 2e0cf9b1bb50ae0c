package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/model"
	"github.com/t77yq/minewatch/internal/storage"
	"github.com/t77yq/minewatch/internal/testutil"
)

func f(v float64) *float64 { return &v }

func newTestEngine(t *testing.T) (*Engine, *storage.Store, *model.MonitoringPoint) {
	t.Helper()
	store, point := testutil.NewStore(t)
	return NewEngine(zap.NewNop(), store), store, point
}

func insertReading(t *testing.T, store *storage.Store, pointID int64, at time.Time, mutate func(*model.Reading)) {
	t.Helper()
	r := &model.Reading{MonitoringPointID: pointID, RecordedAt: at}
	if mutate != nil {
		mutate(r)
	}
	require.NoError(t, store.InsertReading(context.Background(), r))
}

func TestStatistics_EmptyWindow(t *testing.T) {
	engine, _, point := newTestEngine(t)

	stats, err := engine.Statistics(context.Background(), point.ID, 24)
	require.NoError(t, err)
	require.Nil(t, stats)
}

func TestStatistics_TemperatureBlock(t *testing.T) {
	engine, store, point := newTestEngine(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	for i, temp := range []float64{30, 35, 40} {
		at := now.Add(-time.Duration(i+1) * time.Hour)
		insertReading(t, store, point.ID, at, func(r *model.Reading) {
			r.Temperature = f(temp)
		})
	}

	stats, err := engine.Statistics(ctx, point.ID, 24)
	require.NoError(t, err)
	require.NotNil(t, stats)
	require.Equal(t, 3, stats.Count)

	temp, ok := stats.Fields[model.FieldTemperature]
	require.True(t, ok)
	require.Equal(t, 30.0, temp.Min)
	require.Equal(t, 40.0, temp.Max)
	require.Equal(t, 35.0, temp.Avg)
	require.Equal(t, 3, temp.Count)

	// All-null fields are omitted, not zero-filled
	_, ok = stats.Fields[model.FieldMethaneConcentration]
	require.False(t, ok)
	_, ok = stats.Fields[model.FieldHumidity]
	require.False(t, ok)
}

func TestStatistics_ZeroIsData(t *testing.T) {
	engine, store, point := newTestEngine(t)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	insertReading(t, store, point.ID, now.Add(-time.Hour), func(r *model.Reading) {
		r.DustConcentration = f(0)
	})

	stats, err := engine.Statistics(context.Background(), point.ID, 24)
	require.NoError(t, err)
	require.NotNil(t, stats)

	dust, ok := stats.Fields[model.FieldDustConcentration]
	require.True(t, ok)
	require.Equal(t, 0.0, dust.Min)
	require.Equal(t, 0.0, dust.Max)
	require.Equal(t, 1, dust.Count)
}

func TestStatistics_ExcludesOutsideWindow(t *testing.T) {
	engine, store, point := newTestEngine(t)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	insertReading(t, store, point.ID, now.Add(-30*time.Hour), func(r *model.Reading) {
		r.Temperature = f(99)
	})
	insertReading(t, store, point.ID, now.Add(-2*time.Hour), func(r *model.Reading) {
		r.Temperature = f(20)
	})

	stats, err := engine.Statistics(context.Background(), point.ID, 24)
	require.NoError(t, err)
	require.NotNil(t, stats)
	require.Equal(t, 1, stats.Count)
	require.Equal(t, 20.0, stats.Fields[model.FieldTemperature].Max)
}

func TestStatistics_WindowBounds(t *testing.T) {
	engine, _, point := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Statistics(ctx, point.ID, 0)
	require.ErrorIs(t, err, ErrWindowOutOfRange)

	_, err = engine.Statistics(ctx, point.ID, 169)
	require.ErrorIs(t, err, ErrWindowOutOfRange)
}

func TestStatistics_UnknownPoint(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Statistics(context.Background(), 9999, 24)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTrend_AscendingNonNull(t *testing.T) {
	engine, store, point := newTestEngine(t)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	// Inserted out of order; one reading lacks the field
	insertReading(t, store, point.ID, now.Add(-1*time.Hour), func(r *model.Reading) {
		r.MethaneConcentration = f(0.8)
	})
	insertReading(t, store, point.ID, now.Add(-3*time.Hour), func(r *model.Reading) {
		r.MethaneConcentration = f(0.5)
	})
	insertReading(t, store, point.ID, now.Add(-2*time.Hour), nil)

	trend, err := engine.Trend(context.Background(), point.ID, model.FieldMethaneConcentration, 24)
	require.NoError(t, err)
	require.Equal(t, 2, trend.DataPoints)
	require.Len(t, trend.Points, 2)

	// Strictly non-decreasing timestamps
	for i := 1; i < len(trend.Points); i++ {
		require.False(t, trend.Points[i].Timestamp.Before(trend.Points[i-1].Timestamp))
	}
	require.Equal(t, 0.5, trend.Points[0].Value)
	require.Equal(t, 0.8, trend.Points[1].Value)
}

func TestTrend_UnknownField(t *testing.T) {
	engine, _, point := newTestEngine(t)

	_, err := engine.Trend(context.Background(), point.ID, "invalid_field", 24)
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestTrend_EmptyWindow(t *testing.T) {
	engine, _, point := newTestEngine(t)

	trend, err := engine.Trend(context.Background(), point.ID, model.FieldTemperature, 24)
	require.NoError(t, err)
	require.Equal(t, 0, trend.DataPoints)
	require.Empty(t, trend.Points)
}

func TestMineSummary(t *testing.T) {
	engine, store, point := newTestEngine(t)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	second := testutil.AddPoint(t, store, point.MineID, "Shaft C-2")
	insertReading(t, store, point.ID, now.Add(-time.Hour), func(r *model.Reading) {
		r.Temperature = f(25)
	})

	summary, err := engine.MineSummary(context.Background(), point.MineID, 24)
	require.NoError(t, err)
	require.Equal(t, point.MineID, summary.MineID)
	require.Equal(t, 2, summary.PointCount)
	require.Len(t, summary.Points, 2)

	byID := make(map[int64]model.PointStats)
	for _, ps := range summary.Points {
		byID[ps.MonitoringPointID] = ps
	}
	require.NotNil(t, byID[point.ID].Stats)
	// Point with no readings in-window carries no statistics block
	require.Nil(t, byID[second.ID].Stats)
}

func TestMineSummary_NoPoints(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	empty := &model.Mine{Name: "Decommissioned"}
	require.NoError(t, store.CreateMine(ctx, empty))

	_, err := engine.MineSummary(ctx, empty.ID, 24)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
