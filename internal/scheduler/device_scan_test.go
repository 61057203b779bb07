package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/koimport/internal/config"
	"github.com/mrlokans/koimport/internal/tasks"
)

func newTestScheduler(t *testing.T, cfg config.Scan) *DeviceScanScheduler {
	t.Helper()
	taskCfg := tasks.DefaultConfig()
	taskCfg.Workers = 1
	client, err := tasks.NewClient(filepath.Join(t.TempDir(), "index.db"), taskCfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewDeviceScanScheduler(client, cfg, "/media/kobo")
}

func TestSchedulerStartStop(t *testing.T) {
	s := newTestScheduler(t, config.Scan{Enabled: true, Schedule: "0 * * * *"})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.NotNil(t, s.GetNextScanTime())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextScanTime())

	// Stopping twice is a no-op.
	s.Stop()
}

func TestSchedulerStopsWhenContextCancelled(t *testing.T) {
	s := newTestScheduler(t, config.Scan{Enabled: true, Schedule: "0 * * * *"})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	require.True(t, s.IsRunning())

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerDisabled(t *testing.T) {
	s := newTestScheduler(t, config.Scan{Enabled: false, Schedule: "0 * * * *"})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := newTestScheduler(t, config.Scan{Enabled: true, Schedule: "not a schedule"})

	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}
