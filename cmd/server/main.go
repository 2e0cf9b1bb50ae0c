package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/alerts"
	"github.com/t77yq/minewatch/internal/analytics"
	"github.com/t77yq/minewatch/internal/monitor"
	"github.com/t77yq/minewatch/internal/notify"
	"github.com/t77yq/minewatch/internal/query"
	"github.com/t77yq/minewatch/internal/retention"
	"github.com/t77yq/minewatch/internal/storage"
	"github.com/t77yq/minewatch/internal/telemetry"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		logger.Fatal("Failed to read config file", zap.Error(err))
	}

	// Connect to NATS with more options
	opts := []nats.Option{
		nats.Name(viper.GetString("app.name")),
		nats.MaxReconnects(viper.GetInt("nats.max_reconnects")),
		nats.ReconnectWait(viper.GetDuration("nats.reconnect_wait")),
		nats.Timeout(viper.GetDuration("nats.connect_timeout")),
		nats.PingInterval(20 * time.Second),
		nats.MaxPingsOutstanding(5),
		nats.DrainTimeout(30 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS connection error",
				zap.String("subject", sub.Subject),
				zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected",
				zap.String("url", nc.ConnectedUrl()))
		}),
	}

	// Connect with retry
	var nc *nats.Conn
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		nc, err = nats.Connect(viper.GetString("nats.urls.0"), opts...)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to NATS, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		logger.Fatal("Failed to connect to NATS after retries", zap.Error(err))
	}
	defer nc.Close()

	logger.Info("Connected to NATS successfully",
		zap.String("url", nc.ConnectedUrl()))

	// Create JetStream context
	js, err := nc.JetStream()
	if err != nil {
		logger.Fatal("Failed to create JetStream context", zap.Error(err))
	}

	// Open the reading and alert store
	store, err := storage.Open(logger, viper.GetString("storage.path"))
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer store.Close()

	// Wire the domain services
	alertManager := alerts.NewManager(logger, store)
	engine := analytics.NewEngine(logger, store)
	ingestor := telemetry.NewIngestor(logger, store, alertManager, js)
	responder := query.NewResponder(logger, nc, engine, alertManager)

	notifyConfig := notify.Config{}
	notifyConfig.Email.Enabled = viper.GetBool("notify.email.enabled")
	notifyConfig.Email.Host = viper.GetString("notify.email.host")
	notifyConfig.Email.Port = viper.GetInt("notify.email.port")
	notifyConfig.Email.Username = viper.GetString("notify.email.username")
	notifyConfig.Email.Password = viper.GetString("notify.email.password")
	notifyConfig.Email.From = viper.GetString("notify.email.from")
	notifyConfig.Email.Recipients = viper.GetStringSlice("notify.email.recipients")
	notifyConfig.Webhook.Enabled = viper.GetBool("notify.webhook.enabled")
	notifyConfig.Webhook.URL = viper.GetString("notify.webhook.url")
	notifyConfig.Webhook.Timeout = viper.GetDuration("notify.webhook.timeout")
	notifier := notify.NewNotifier(logger, js, notifyConfig)

	healthMonitor := monitor.NewHealthMonitor(logger, store, js,
		viper.GetDuration("monitor.interval"))

	retentionConfig := retention.DefaultConfig()
	if s := viper.GetString("retention.schedule"); s != "" {
		retentionConfig.Schedule = s
	}
	if d := viper.GetDuration("retention.reading_max_age"); d > 0 {
		retentionConfig.ReadingMaxAge = d
	}
	if d := viper.GetDuration("retention.alert_max_age"); d > 0 {
		retentionConfig.AlertMaxAge = d
	}
	janitor := retention.NewJanitor(logger, store, retentionConfig)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	// Start services
	if err := ingestor.Start(ctx); err != nil {
		logger.Fatal("Failed to start telemetry ingestor", zap.Error(err))
	}
	if err := notifier.Start(ctx); err != nil {
		logger.Fatal("Failed to start notifier", zap.Error(err))
	}
	if err := responder.Start(); err != nil {
		logger.Fatal("Failed to start query responder", zap.Error(err))
	}
	if err := healthMonitor.Start(ctx); err != nil {
		logger.Fatal("Failed to start health monitor", zap.Error(err))
	}
	if err := janitor.Start(); err != nil {
		logger.Fatal("Failed to start retention janitor", zap.Error(err))
	}

	logger.Info("Mine monitoring server started",
		zap.String("app", viper.GetString("app.name")))

	<-ctx.Done()

	logger.Info("Shutting down...")
	janitor.Stop()
	healthMonitor.Stop()
	responder.Stop()
	notifier.Stop()
	ingestor.Stop()

	if err := nc.Drain(); err != nil {
		logger.Error("Failed to drain NATS connection", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}
