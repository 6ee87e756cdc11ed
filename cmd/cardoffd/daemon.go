package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cardoff/internal/config"
	"cardoff/internal/journal"
	"cardoff/internal/logging"
	"cardoff/internal/notifications"
	"cardoff/internal/pipeline"
	"cardoff/internal/profiles"
	"cardoff/internal/services"
	"cardoff/internal/watcher"
)

// daemon ties the udev monitor to the import pipeline and enforces
// single-instance execution through a lock file in the log directory.
type daemon struct {
	cfg      *config.Config
	cams     []profiles.CameraProfile
	store    *journal.Store
	notifier notifications.Service
	logger   *slog.Logger
	monitor  *watcher.Monitor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

func newDaemon(cfg *config.Config, cams []profiles.CameraProfile, store *journal.Store, notifier notifications.Service, logger *slog.Logger) *daemon {
	lockPath := filepath.Join(cfg.Paths.LogDir, "cardoffd.lock")
	d := &daemon{
		cfg:      cfg,
		cams:     cams,
		store:    store,
		notifier: notifier,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.monitor = watcher.NewMonitor(cfg, d.handleCard, logger)
	return d
}

// Start acquires the daemon lock and begins listening for card insertions.
func (d *daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cardoffd instance is already running")
	}

	ctx, d.cancel = context.WithCancel(ctx)
	if err := d.monitor.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.cancel = nil
		return fmt.Errorf("start monitor: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("cardoffd started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the monitor and releases the daemon lock.
func (d *daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("cardoffd stopped")
}

// handleCard runs the import pipeline for a freshly mounted card. The daemon
// runs unattended, so no confirmation gate is installed.
func (d *daemon) handleCard(ctx context.Context, device, mountPoint string) {
	log := d.logger.With(logging.String("device", device), logging.String("mount_point", mountPoint))
	log.Info("card detected")

	if err := d.notifier.NotifyCardDetected(ctx, device, mountPoint); err != nil {
		log.Warn("card detected notification", logging.Error(err))
	}

	ctx = services.WithDevice(ctx, device)
	orch := pipeline.New(d.cfg, d.cams, d.store, d.notifier, nil, d.logger)
	outcome, err := orch.Run(ctx, mountPoint)
	if err != nil {
		log.Error("import failed", logging.Error(err), logging.String("kind", services.Kind(err)))
		return
	}

	log.Info("import complete",
		logging.String("run_id", outcome.RunID),
		logging.String("route", outcome.Route),
		logging.Int("files", outcome.Transfer.Copied+outcome.Transfer.Skipped),
		logging.Int64("bytes", outcome.Transfer.Bytes),
	)
}

func daemonLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "cardoffd.log")
}
