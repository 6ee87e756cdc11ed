// Command cardoffd watches for inserted SD cards over udev netlink and runs
// the import pipeline against each one as it mounts. It holds a lock file so
// only one instance processes cards at a time.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"cardoff/internal/config"
	"cardoff/internal/journal"
	"cardoff/internal/logging"
	"cardoff/internal/notifications"
	"cardoff/internal/profiles"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", daemonLogPath(cfg)},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	cams, err := profiles.Load(cfg.Paths.ProfilesPath)
	if err != nil {
		logger.Error("load camera profiles", logging.Error(err))
		return
	}

	store, err := journal.Open(cfg)
	if err != nil {
		logger.Error("open journal", logging.Error(err))
		return
	}
	defer store.Close()

	d := newDaemon(cfg, cams, store, notifications.NewService(cfg), logger)
	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}
	defer d.Stop()

	<-ctx.Done()
	logger.Info("cardoffd shutting down")
}
