// Package retention runs the scheduled cleanup of aged readings and
// resolved alerts.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/storage"
)

const sweepTimeout = 30 * time.Second

// Config controls how long data is kept and when the sweep runs.
type Config struct {
	// Schedule is a cron expression with a seconds field.
	Schedule string
	// ReadingMaxAge is how long readings are kept.
	ReadingMaxAge time.Duration
	// AlertMaxAge is how long resolved alerts are kept.
	AlertMaxAge time.Duration
}

// DefaultConfig keeps readings for 90 days and resolved alerts for one
// year, sweeping nightly at 03:00.
func DefaultConfig() Config {
	return Config{
		Schedule:      "0 0 3 * * *",
		ReadingMaxAge: 90 * 24 * time.Hour,
		AlertMaxAge:   365 * 24 * time.Hour,
	}
}

// cronLogger adapts zap.Logger to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err))
}

// Janitor deletes readings and resolved alerts past their retention age.
type Janitor struct {
	logger *zap.Logger
	store  *storage.Store
	config Config
	cron   *cron.Cron
	now    func() time.Time
}

// NewJanitor creates a retention janitor.
func NewJanitor(logger *zap.Logger, store *storage.Store, config Config) *Janitor {
	named := logger.Named("retention")
	cronOptions := []cron.Option{
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(&cronLogger{logger: named.Named("cron")})),
	}
	return &Janitor{
		logger: named,
		store:  store,
		config: config,
		cron:   cron.New(cronOptions...),
		now:    time.Now,
	}
}

// Start registers the sweep schedule and starts the cron loop.
func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if err := j.Sweep(ctx); err != nil {
			j.logger.Error("Retention sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", j.config.Schedule, err)
	}

	j.cron.Start()
	j.logger.Info("Retention janitor started",
		zap.String("schedule", j.config.Schedule),
		zap.Duration("reading_max_age", j.config.ReadingMaxAge),
		zap.Duration("alert_max_age", j.config.AlertMaxAge))
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// Sweep deletes readings older than ReadingMaxAge and resolved alerts
// older than AlertMaxAge. Active and acknowledged alerts are never
// touched regardless of age.
func (j *Janitor) Sweep(ctx context.Context) error {
	now := j.now()

	readings, err := j.store.DeleteReadingsBefore(ctx, now.Add(-j.config.ReadingMaxAge))
	if err != nil {
		return fmt.Errorf("failed to delete aged readings: %w", err)
	}

	alerts, err := j.store.DeleteResolvedAlertsBefore(ctx, now.Add(-j.config.AlertMaxAge))
	if err != nil {
		return fmt.Errorf("failed to delete aged alerts: %w", err)
	}

	j.logger.Info("Retention sweep finished",
		zap.Int64("readings_deleted", readings),
		zap.Int64("alerts_deleted", alerts))
	return nil
}
