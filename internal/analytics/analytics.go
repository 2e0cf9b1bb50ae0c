// Package analytics computes windowed statistics and trend series over
// stored environment readings. All queries are read-only and recomputed
// fresh per call.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/model"
	"github.com/t77yq/minewatch/internal/storage"
)

// Trailing window bounds in hours.
const (
	MinWindowHours = 1
	MaxWindowHours = 168 // 7 days
)

var (
	// ErrUnknownField is returned when a trend query names an unrecognized
	// sensor field
	ErrUnknownField = errors.New("unknown sensor field")

	// ErrWindowOutOfRange is returned when the requested window is outside
	// [1, 168] hours
	ErrWindowOutOfRange = errors.New("window hours out of range")
)

// Engine answers statistics, trend and mine summary queries.
type Engine struct {
	logger *zap.Logger
	store  *storage.Store
	now    func() time.Time
}

// NewEngine creates a new aggregation engine.
func NewEngine(logger *zap.Logger, store *storage.Store) *Engine {
	return &Engine{
		logger: logger.Named("analytics"),
		store:  store,
		now:    time.Now,
	}
}

func validateWindow(hours int) error {
	if hours < MinWindowHours || hours > MaxWindowHours {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrWindowOutOfRange, hours, MinWindowHours, MaxWindowHours)
	}
	return nil
}

// Statistics computes min/max/avg/count per sensor field over the trailing
// window [now - hours, now]. Returns nil when no readings fall in the
// window. Fields with no non-null values are omitted entirely, so "no data"
// stays distinguishable from "data is zero".
func (e *Engine) Statistics(ctx context.Context, pointID int64, hours int) (*model.EnvironmentStats, error) {
	if err := validateWindow(hours); err != nil {
		return nil, err
	}
	if _, err := e.store.GetMonitoringPoint(ctx, pointID); err != nil {
		return nil, err
	}

	end := e.now()
	start := end.Add(-time.Duration(hours) * time.Hour)
	readings, err := e.store.ReadingsInRange(ctx, pointID, start, end)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}

	stats := &model.EnvironmentStats{
		Count:  len(readings),
		Start:  start,
		End:    end,
		Fields: make(map[string]model.FieldStats),
	}

	for _, field := range model.SensorFields {
		var min, max, sum float64
		count := 0
		for _, r := range readings {
			v, _ := r.Field(field)
			if v == nil {
				continue
			}
			if count == 0 || *v < min {
				min = *v
			}
			if count == 0 || *v > max {
				max = *v
			}
			sum += *v
			count++
		}
		if count > 0 {
			stats.Fields[field] = model.FieldStats{
				Min:   min,
				Max:   max,
				Avg:   sum / float64(count),
				Count: count,
			}
		}
	}

	return stats, nil
}

// Trend produces the time-ordered series of one sensor field over the
// trailing window. Readings without a value for the field are skipped; no
// smoothing or interpolation is applied.
func (e *Engine) Trend(ctx context.Context, pointID int64, field string, hours int) (*model.Trend, error) {
	if err := validateWindow(hours); err != nil {
		return nil, err
	}
	known := false
	for _, name := range model.SensorFields {
		if name == field {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if _, err := e.store.GetMonitoringPoint(ctx, pointID); err != nil {
		return nil, err
	}

	end := e.now()
	start := end.Add(-time.Duration(hours) * time.Hour)
	readings, err := e.store.ReadingsInRange(ctx, pointID, start, end)
	if err != nil {
		return nil, err
	}

	points := make([]model.TrendPoint, 0, len(readings))
	for _, r := range readings {
		v, _ := r.Field(field)
		if v == nil {
			continue
		}
		points = append(points, model.TrendPoint{
			Timestamp: r.RecordedAt,
			Value:     *v,
		})
	}

	return &model.Trend{
		MonitoringPointID: pointID,
		Field:             field,
		Hours:             hours,
		DataPoints:        len(points),
		Points:            points,
	}, nil
}

// MineSummary fans the statistics query out over every monitoring point of a
// mine. Fails with ErrNotFound when the mine owns no monitoring points.
func (e *Engine) MineSummary(ctx context.Context, mineID int64, hours int) (*model.MineStats, error) {
	if err := validateWindow(hours); err != nil {
		return nil, err
	}

	points, err := e.store.MonitoringPointsByMine(ctx, mineID)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no monitoring points for mine %d: %w", mineID, storage.ErrNotFound)
	}

	summary := &model.MineStats{
		MineID:     mineID,
		PointCount: len(points),
		Hours:      hours,
		Points:     make([]model.PointStats, 0, len(points)),
	}

	for _, point := range points {
		stats, err := e.Statistics(ctx, point.ID, hours)
		if err != nil {
			return nil, err
		}
		summary.Points = append(summary.Points, model.PointStats{
			MonitoringPointID: point.ID,
			Name:              point.Name,
			Location:          point.Location,
			Stats:             stats,
		})
	}

	return summary, nil
}
