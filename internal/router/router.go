package router

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"cardoff/internal/config"
	"cardoff/internal/logging"
	"cardoff/internal/services"
)

// Route identifies the destination class a run was assigned.
type Route string

const (
	// RouteStore means files go directly to the network store.
	RouteStore Route = "store"
	// RouteStaging means the store was unreachable and files go to the
	// local staging directory for a later sweep.
	RouteStaging Route = "staging"
)

// Decision is the immutable routing outcome for a single run.
type Decision struct {
	Route Route
	// Root is the destination root directory for the chosen route.
	Root string
	// StoreReachable records the probe outcome regardless of the route
	// actually chosen.
	StoreReachable bool
}

// Router probes destination availability and picks the run's root.
type Router struct {
	cfg    *config.Config
	logger *slog.Logger

	// dial and statfs are replaceable for tests.
	dial   func(ctx context.Context, addr string, timeout time.Duration) error
	statfs func(path string, st *unix.Statfs_t) error
}

func New(cfg *config.Config, logger *slog.Logger) *Router {
	return &Router{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "router"),
		dial:   dialProbe,
		statfs: unix.Statfs,
	}
}

// Decide probes the network store and, if it is unreachable, validates the
// staging fallback. It returns NoDestinationAvailable when neither root can
// accept the run.
func (r *Router) Decide(ctx context.Context, requiredBytes int64) (*Decision, error) {
	if r.storeReachable(ctx) {
		r.logger.Info("routing to store", logging.String("root", r.cfg.Paths.StoreDir))
		return &Decision{Route: RouteStore, Root: r.cfg.Paths.StoreDir, StoreReachable: true}, nil
	}

	if err := r.stagingUsable(requiredBytes); err != nil {
		return nil, services.Wrap(services.ErrNoDestination, "routing", "fallback", "store unreachable and staging unusable", err)
	}

	r.logger.Warn("store unreachable, routing to staging",
		logging.String("root", r.cfg.Paths.StagingDir),
	)
	return &Decision{Route: RouteStaging, Root: r.cfg.Paths.StagingDir, StoreReachable: false}, nil
}

// storeReachable runs the configured probe. A probe address takes precedence
// over a filesystem check; either way a timeout counts as unreachable.
func (r *Router) storeReachable(ctx context.Context) bool {
	timeout := time.Duration(r.cfg.Router.ProbeTimeout) * time.Second

	if addr := r.cfg.Router.ProbeAddr; addr != "" {
		if err := r.dial(ctx, addr, timeout); err != nil {
			r.logger.Debug("store probe failed",
				logging.String("probe_addr", addr),
				logging.Error(err),
			)
			return false
		}
		return true
	}

	done := make(chan error, 1)
	go func() {
		info, err := os.Stat(r.cfg.Paths.StoreDir)
		if err == nil && !info.IsDir() {
			err = fmt.Errorf("%s is not a directory", r.cfg.Paths.StoreDir)
		}
		done <- err
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			r.logger.Debug("store stat failed", logging.Error(err))
		}
		return err == nil
	case <-timer.C:
		// A hung network mount blocks stat indefinitely. Treat the
		// timeout as unreachable and leave the goroutine to finish.
		r.logger.Debug("store stat timed out")
		return false
	case <-ctx.Done():
		return false
	}
}

// stagingUsable verifies the staging directory exists, is writable, and has
// enough free space for the run plus the configured floor.
func (r *Router) stagingUsable(requiredBytes int64) error {
	dir := r.cfg.Paths.StagingDir

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create staging directory: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("stat staging directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	var st unix.Statfs_t
	if err := r.statfs(dir, &st); err != nil {
		return fmt.Errorf("statfs staging directory: %w", err)
	}

	free := int64(st.Bavail) * st.Bsize
	needed := requiredBytes + r.cfg.Router.MinStagingFreeMiB*1024*1024
	if free < needed {
		return fmt.Errorf("staging has %d bytes free, need %d", free, needed)
	}
	return nil
}

func dialProbe(ctx context.Context, addr string, timeout time.Duration) error {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}
