package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/minewatch/internal/model"
	"github.com/t77yq/minewatch/internal/storage"
)

// NewStore opens a temporary SQLite store seeded with one mine and one
// monitoring point. The store is closed when the test finishes.
func NewStore(t *testing.T) (*storage.Store, *model.MonitoringPoint) {
	t.Helper()

	store, err := storage.Open(zap.NewNop(), filepath.Join(t.TempDir(), "minewatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	mine := &model.Mine{Name: "North Shaft", Location: "Level -320m"}
	require.NoError(t, store.CreateMine(ctx, mine))

	point := &model.MonitoringPoint{
		MineID:   mine.ID,
		Name:     "Tunnel A-3",
		Location: "East heading",
		IsActive: true,
	}
	require.NoError(t, store.CreateMonitoringPoint(ctx, point))

	return store, point
}

// AddPoint seeds an extra monitoring point on the same mine.
func AddPoint(t *testing.T, store *storage.Store, mineID int64, name string) *model.MonitoringPoint {
	t.Helper()

	point := &model.MonitoringPoint{
		MineID:   mineID,
		Name:     name,
		IsActive: true,
	}
	require.NoError(t, store.CreateMonitoringPoint(context.Background(), point))
	return point
}
