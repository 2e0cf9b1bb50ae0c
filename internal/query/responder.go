// Package query answers read-only monitoring queries over NATS
// request-reply. Dashboards and CLI tools send a JSON request to a
// query.* subject and get the result or an error string back.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/alerts"
	"github.com/t77yq/minewatch/internal/analytics"
)

const (
	statisticsSubject   = "query.statistics"
	trendSubject        = "query.trend"
	mineSummarySubject  = "query.mine_summary"
	alertSummarySubject = "query.alert_summary"

	queryTimeout = 10 * time.Second
)

// StatsRequest asks for windowed statistics at one monitoring point.
type StatsRequest struct {
	MonitoringPointID int64 `json:"monitoring_point_id"`
	Hours             int   `json:"hours"`
}

// TrendRequest asks for the series of one sensor field.
type TrendRequest struct {
	MonitoringPointID int64  `json:"monitoring_point_id"`
	Field             string `json:"field"`
	Hours             int    `json:"hours"`
}

// MineSummaryRequest asks for per-point statistics across a mine.
type MineSummaryRequest struct {
	MineID int64 `json:"mine_id"`
	Hours  int   `json:"hours"`
}

// AlertSummaryRequest asks for the alert dashboard rollup, optionally
// scoped to one mine.
type AlertSummaryRequest struct {
	MineID *int64 `json:"mine_id,omitempty"`
}

// Response wraps every reply. Exactly one of Result and Error is set.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Responder serves the query subjects.
type Responder struct {
	logger  *zap.Logger
	nc      *nats.Conn
	engine  *analytics.Engine
	manager *alerts.Manager
	subs    []*nats.Subscription
}

// NewResponder creates a query responder.
func NewResponder(logger *zap.Logger, nc *nats.Conn, engine *analytics.Engine, manager *alerts.Manager) *Responder {
	return &Responder{
		logger:  logger.Named("query"),
		nc:      nc,
		engine:  engine,
		manager: manager,
	}
}

// Start subscribes to the query subjects.
func (r *Responder) Start() error {
	handlers := map[string]nats.MsgHandler{
		statisticsSubject:   r.handleStatistics,
		trendSubject:        r.handleTrend,
		mineSummarySubject:  r.handleMineSummary,
		alertSummarySubject: r.handleAlertSummary,
	}
	for subject, handler := range handlers {
		sub, err := r.nc.Subscribe(subject, handler)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		r.subs = append(r.subs, sub)
	}

	r.logger.Info("Query responder started", zap.Int("subjects", len(handlers)))
	return nil
}

// Stop unsubscribes from the query subjects.
func (r *Responder) Stop() {
	for _, sub := range r.subs {
		sub.Unsubscribe()
	}
}

func (r *Responder) handleStatistics(msg *nats.Msg) {
	var req StatsRequest
	r.respond(msg, &req, func(ctx context.Context) (interface{}, error) {
		return r.engine.Statistics(ctx, req.MonitoringPointID, req.Hours)
	})
}

func (r *Responder) handleTrend(msg *nats.Msg) {
	var req TrendRequest
	r.respond(msg, &req, func(ctx context.Context) (interface{}, error) {
		return r.engine.Trend(ctx, req.MonitoringPointID, req.Field, req.Hours)
	})
}

func (r *Responder) handleMineSummary(msg *nats.Msg) {
	var req MineSummaryRequest
	r.respond(msg, &req, func(ctx context.Context) (interface{}, error) {
		return r.engine.MineSummary(ctx, req.MineID, req.Hours)
	})
}

func (r *Responder) handleAlertSummary(msg *nats.Msg) {
	var req AlertSummaryRequest
	r.respond(msg, &req, func(ctx context.Context) (interface{}, error) {
		return r.manager.Summary(ctx, req.MineID)
	})
}

func (r *Responder) respond(msg *nats.Msg, req interface{}, run func(context.Context) (interface{}, error)) {
	if err := json.Unmarshal(msg.Data, req); err != nil {
		r.reply(msg, nil, fmt.Errorf("invalid request: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := run(ctx)
	r.reply(msg, result, err)
}

func (r *Responder) reply(msg *nats.Msg, result interface{}, err error) {
	var resp Response
	if err != nil {
		resp.Error = err.Error()
	} else if result != nil {
		data, merr := json.Marshal(result)
		if merr != nil {
			resp.Error = merr.Error()
		} else {
			resp.Result = data
		}
	}

	data, merr := json.Marshal(resp)
	if merr != nil {
		r.logger.Error("Failed to marshal query response", zap.Error(merr))
		return
	}
	if rerr := msg.Respond(data); rerr != nil {
		r.logger.Error("Failed to send query response",
			zap.String("subject", msg.Subject),
			zap.Error(rerr))
	}
}
