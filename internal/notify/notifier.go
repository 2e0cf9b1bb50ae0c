// Package notify dispatches operator notifications for alert events
// published on the NATS alert stream.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/telemetry"
)

const alertSubjects = "alert.*"

// Config holds configuration for the notification channels.
type Config struct {
	Email struct {
		Enabled    bool
		Host       string
		Port       int
		Username   string
		Password   string
		From       string
		Recipients []string
	}
	Webhook struct {
		Enabled bool
		URL     string
		Timeout time.Duration
	}
}

// Notifier forwards alert events to the configured channels. Delivery is
// best effort: a failed channel is logged, never retried.
type Notifier struct {
	logger *zap.Logger
	js     nats.JetStreamContext
	config Config
	client *http.Client
	sub    *nats.Subscription
}

// NewNotifier creates a new alert notifier.
func NewNotifier(logger *zap.Logger, js nats.JetStreamContext, config Config) *Notifier {
	timeout := config.Webhook.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		logger: logger.Named("notify"),
		js:     js,
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

// Start subscribes to the alert stream with a durable consumer.
func (n *Notifier) Start(ctx context.Context) error {
	sub, err := n.js.Subscribe(alertSubjects, n.handleEvent, nats.Durable("alert-notify"))
	if err != nil {
		return fmt.Errorf("failed to subscribe to alert events: %w", err)
	}
	n.sub = sub

	n.logger.Info("Alert notifier started",
		zap.Bool("email", n.config.Email.Enabled),
		zap.Bool("webhook", n.config.Webhook.Enabled))
	return nil
}

// Stop unsubscribes from the alert stream.
func (n *Notifier) Stop() {
	if n.sub != nil {
		n.sub.Unsubscribe()
	}
}

func (n *Notifier) handleEvent(msg *nats.Msg) {
	var event telemetry.AlertEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		n.logger.Error("Failed to unmarshal alert event", zap.Error(err))
		return
	}
	if event.Alert == nil {
		n.logger.Error("Alert event without alert payload",
			zap.String("event_id", event.EventID))
		return
	}

	if n.config.Email.Enabled {
		if err := n.sendEmail(&event); err != nil {
			n.logger.Error("Failed to send alert email",
				zap.Int64("alert_id", event.Alert.ID),
				zap.Error(err))
		}
	}
	if n.config.Webhook.Enabled {
		if err := n.sendWebhook(&event); err != nil {
			n.logger.Error("Failed to post alert webhook",
				zap.Int64("alert_id", event.Alert.ID),
				zap.Error(err))
		}
	}
	msg.Ack()
}

// Subject builds the notification subject line for an alert event.
func Subject(event *telemetry.AlertEvent) string {
	return fmt.Sprintf("[%s] %s", event.Alert.Severity, event.Alert.Title)
}

// Body builds the notification body text for an alert event.
func Body(event *telemetry.AlertEvent) string {
	body := fmt.Sprintf("Alert #%d at monitoring point %d\nSeverity: %s\nDetected: %s\n",
		event.Alert.ID,
		event.Alert.MonitoringPointID,
		event.Alert.Severity,
		event.Alert.DetectedAt.Format(time.RFC3339))
	if event.Alert.Description != "" {
		body += fmt.Sprintf("\n%s\n", event.Alert.Description)
	}
	if event.Breach != nil {
		body += fmt.Sprintf("\nMeasured %s = %v (threshold %v)\n",
			event.Breach.Field, event.Breach.Value, event.Breach.Threshold)
	}
	return body
}

func (n *Notifier) sendEmail(event *telemetry.AlertEvent) error {
	cfg := n.config.Email
	if len(cfg.Recipients) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n",
		cfg.From,
		cfg.Recipients[0],
		Subject(event),
		Body(event))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return smtp.SendMail(addr, auth, cfg.From, cfg.Recipients, []byte(msg))
}

func (n *Notifier) sendWebhook(event *telemetry.AlertEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	resp, err := n.client.Post(n.config.Webhook.URL, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
