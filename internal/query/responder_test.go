package query

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/alerts"
	"github.com/t77yq/minewatch/internal/analytics"
	"github.com/t77yq/minewatch/internal/model"
	"github.com/t77yq/minewatch/internal/storage"
	"github.com/t77yq/minewatch/internal/testutil"
)

func newTestResponder(t *testing.T) (*nats.Conn, *storage.Store, *model.MonitoringPoint) {
	t.Helper()

	srv, _, cleanup := testutil.StartJetStream(t)
	t.Cleanup(cleanup)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	store, point := testutil.NewStore(t)
	logger := zap.NewNop()
	engine := analytics.NewEngine(logger, store)
	manager := alerts.NewManager(logger, store)

	responder := NewResponder(logger, nc, engine, manager)
	require.NoError(t, responder.Start())
	t.Cleanup(responder.Stop)

	return nc, store, point
}

func request(t *testing.T, nc *nats.Conn, subject string, req interface{}) Response {
	t.Helper()

	data, err := json.Marshal(req)
	require.NoError(t, err)
	msg, err := nc.Request(subject, data, 5*time.Second)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(msg.Data, &resp))
	return resp
}

func TestResponder_Statistics(t *testing.T) {
	nc, store, point := newTestResponder(t)

	temp := 25.0
	require.NoError(t, store.InsertReading(context.Background(), &model.Reading{
		MonitoringPointID: point.ID,
		Temperature:       &temp,
		RecordedAt:        time.Now().Add(-time.Hour),
	}))

	resp := request(t, nc, statisticsSubject, StatsRequest{
		MonitoringPointID: point.ID,
		Hours:             24,
	})
	require.Empty(t, resp.Error)

	var stats model.EnvironmentStats
	require.NoError(t, json.Unmarshal(resp.Result, &stats))
	require.Equal(t, 1, stats.Count)
	require.Equal(t, 25.0, stats.Fields[model.FieldTemperature].Avg)
}

func TestResponder_TrendUnknownField(t *testing.T) {
	nc, _, point := newTestResponder(t)

	resp := request(t, nc, trendSubject, TrendRequest{
		MonitoringPointID: point.ID,
		Field:             "invalid_field",
		Hours:             24,
	})
	require.Empty(t, resp.Result)
	require.Contains(t, resp.Error, "unknown sensor field")
}

func TestResponder_AlertSummaryEmpty(t *testing.T) {
	nc, _, _ := newTestResponder(t)

	resp := request(t, nc, alertSummarySubject, AlertSummaryRequest{})
	require.Empty(t, resp.Error)

	var summary model.AlertSummary
	require.NoError(t, json.Unmarshal(resp.Result, &summary))
	require.Equal(t, 0, summary.TotalAlerts)
	require.Len(t, summary.AlertsBySeverity, 4)
}
