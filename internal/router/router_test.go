package router

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"cardoff/internal/config"
	"cardoff/internal/logging"
	"cardoff/internal/services"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Paths.StoreDir = filepath.Join(t.TempDir(), "store")
	cfg.Router.ProbeTimeout = 1
	cfg.Router.MinStagingFreeMiB = 0
	return &cfg
}

func plentyOfSpace(string, *unix.Statfs_t) error {
	return nil
}

func withSpace(free int64) func(string, *unix.Statfs_t) error {
	return func(_ string, st *unix.Statfs_t) error {
		st.Bavail = uint64(free)
		st.Bsize = 1
		return nil
	}
}

func TestDecideProbeSuccess(t *testing.T) {
	cfg := testConfig(t)
	cfg.Router.ProbeAddr = "store.local:445"

	r := New(cfg, logging.NewNop())
	r.dial = func(context.Context, string, time.Duration) error { return nil }

	decision, err := r.Decide(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, RouteStore, decision.Route)
	assert.Equal(t, cfg.Paths.StoreDir, decision.Root)
	assert.True(t, decision.StoreReachable)
}

func TestDecideProbeFailureFallsBackToStaging(t *testing.T) {
	cfg := testConfig(t)
	cfg.Router.ProbeAddr = "store.local:445"

	r := New(cfg, logging.NewNop())
	r.dial = func(context.Context, string, time.Duration) error {
		return errors.New("connection refused")
	}
	r.statfs = withSpace(1 << 30)

	decision, err := r.Decide(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, RouteStaging, decision.Route)
	assert.Equal(t, cfg.Paths.StagingDir, decision.Root)
	assert.False(t, decision.StoreReachable)
}

func TestDecideStatFallbackWhenNoProbeAddr(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.StoreDir = t.TempDir()

	r := New(cfg, logging.NewNop())

	decision, err := r.Decide(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, RouteStore, decision.Route)
}

func TestDecideMissingStoreDirFallsBack(t *testing.T) {
	cfg := testConfig(t)

	r := New(cfg, logging.NewNop())
	r.statfs = withSpace(1 << 30)

	decision, err := r.Decide(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, RouteStaging, decision.Route)
}

func TestDecideNoDestination(t *testing.T) {
	cfg := testConfig(t)
	cfg.Router.MinStagingFreeMiB = 1

	r := New(cfg, logging.NewNop())
	r.statfs = withSpace(512) // well below the 1 MiB floor

	_, err := r.Decide(context.Background(), 4096)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrNoDestination)
	assert.Equal(t, "NoDestinationAvailable", services.Kind(err))
}

func TestStagingCreatedOnDemand(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.StagingDir = filepath.Join(t.TempDir(), "staging", "nested")

	r := New(cfg, logging.NewNop())
	r.statfs = plentyOfSpace

	decision, err := r.Decide(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, RouteStaging, decision.Route)
	assert.DirExists(t, cfg.Paths.StagingDir)
}
