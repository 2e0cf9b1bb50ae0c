// Package monitor periodically samples host health and alert load and
// publishes snapshots on the metrics subject for dashboards.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/storage"
)

const metricsSubject = "metrics.system"

// HealthSnapshot is the metrics payload published every interval.
type HealthSnapshot struct {
	Timestamp      time.Time `json:"timestamp"`
	CPUUsage       float64   `json:"cpu_usage"`
	MemoryUsage    float64   `json:"memory_usage"`
	ActiveAlerts   int       `json:"active_alerts"`
	CriticalAlerts int       `json:"critical_alerts"`
}

// HealthMonitor samples host CPU and memory usage together with the
// current alert load and publishes the snapshot on the metrics subject.
type HealthMonitor struct {
	logger   *zap.Logger
	store    *storage.Store
	js       nats.JetStreamContext
	interval time.Duration

	mu     sync.RWMutex
	latest *HealthSnapshot
	stop   chan struct{}
}

// NewHealthMonitor creates a new health monitor.
func NewHealthMonitor(logger *zap.Logger, store *storage.Store, js nats.JetStreamContext, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthMonitor{
		logger:   logger.Named("monitor"),
		store:    store,
		js:       js,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the sampling loop.
func (m *HealthMonitor) Start(ctx context.Context) error {
	m.logger.Info("Starting health monitor", zap.Duration("interval", m.interval))
	go m.sampleLoop(ctx)
	return nil
}

// Stop stops the sampling loop.
func (m *HealthMonitor) Stop() {
	m.logger.Info("Stopping health monitor")
	close(m.stop)
}

// Latest returns the most recent snapshot, or nil before the first sample.
func (m *HealthMonitor) Latest() *HealthSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

func (m *HealthMonitor) sampleLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			if err := m.sample(ctx); err != nil {
				m.logger.Error("Failed to sample health", zap.Error(err))
			}
		}
	}
}

func (m *HealthMonitor) sample(ctx context.Context) error {
	cpuPercent, err := cpu.Percent(time.Second, false)
	if err != nil {
		return fmt.Errorf("failed to get CPU usage: %w", err)
	}
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Errorf("failed to get memory usage: %w", err)
	}

	active, err := m.store.ActiveAlerts(ctx, nil)
	if err != nil {
		return err
	}
	critical, err := m.store.ActiveCriticalAlerts(ctx, nil)
	if err != nil {
		return err
	}

	snapshot := &HealthSnapshot{
		Timestamp:      time.Now(),
		CPUUsage:       cpuPercent[0],
		MemoryUsage:    memInfo.UsedPercent,
		ActiveAlerts:   len(active),
		CriticalAlerts: len(critical),
	}

	m.mu.Lock()
	m.latest = snapshot
	m.mu.Unlock()

	if m.js != nil {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal health snapshot: %w", err)
		}
		if _, err := m.js.Publish(metricsSubject, data); err != nil {
			return fmt.Errorf("failed to publish health snapshot: %w", err)
		}
	}

	m.logger.Debug("Health sampled",
		zap.Float64("cpu_usage", snapshot.CPUUsage),
		zap.Float64("memory_usage", snapshot.MemoryUsage),
		zap.Int("active_alerts", snapshot.ActiveAlerts))
	return nil
}
