package watcher

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"cardoff/internal/config"
	"cardoff/internal/logging"
)

// Handler processes one mounted card. The watcher runs handlers sequentially
// per device event; concurrent cards get independent invocations.
type Handler func(ctx context.Context, device, mountPoint string)

// Monitor listens for partition add events over udev netlink and resolves
// their mount points before invoking the handler.
type Monitor struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler Handler

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool

	// mountLookup is replaceable for tests.
	mountLookup func(device string, bases []string) (string, bool)
}

func NewMonitor(cfg *config.Config, handler Handler, logger *slog.Logger) *Monitor {
	if cfg == nil {
		return nil
	}
	return &Monitor{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "watcher"),
		handler:     handler,
		mountLookup: findMountPoint,
	}
}

// Start begins listening for udev netlink events.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; card detection unavailable, run imports manually",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
		)
		return nil // non-fatal, the CLI still works
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("card watcher started",
		logging.String(logging.FieldEventType, "watcher_started"),
		logging.Any("mount_bases", m.cfg.Watcher.MountBases),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("card watcher stopped",
		logging.String(logging.FieldEventType, "watcher_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
			)
		}
	}
}

// buildMatcher selects partition add events: SUBSYSTEM=block,
// DEVTYPE=partition, ACTION=add. Whole-disk events are ignored; the
// automounter mounts partitions.
func buildMatcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"DEVTYPE":   "partition",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	device := extractDeviceName(uevent)
	if device == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}

	m.logger.Info("partition detected",
		logging.String(logging.FieldEventType, "partition_detected"),
		logging.String(logging.FieldDevice, device),
	)

	mountPoint, ok := m.awaitMount(ctx, device)
	if !ok {
		m.logger.Warn("partition never appeared in mount table, skipping",
			logging.String(logging.FieldDevice, device),
		)
		return
	}

	m.logger.Info("card mounted",
		logging.String(logging.FieldDevice, device),
		logging.String("mount_point", mountPoint),
	)
	if m.handler != nil {
		m.handler(ctx, device, mountPoint)
	}
}

// awaitMount gives the automounter the configured settle delay, then polls
// the mount table for up to another settle interval.
func (m *Monitor) awaitMount(ctx context.Context, device string) (string, bool) {
	settle := time.Duration(m.cfg.Watcher.SettleDelay) * time.Second
	if settle <= 0 {
		settle = time.Second
	}

	deadline := time.Now().Add(2 * settle)
	interval := 500 * time.Millisecond
	for {
		if mountPoint, ok := m.mountLookup(device, m.cfg.Watcher.MountBases); ok {
			return mountPoint, true
		}
		if time.Now().After(deadline) {
			return "", false
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", false
		case <-timer.C:
		}
	}
}

func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/dev/") {
			devname = "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
