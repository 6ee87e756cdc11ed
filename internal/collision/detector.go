package collision

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"cardoff/internal/logging"
	"cardoff/internal/profiles"
	"cardoff/internal/services"
)

const lockFileName = ".cardoff.lock"

// Guard holds the advisory locks acquired while a run owns its candidate
// destination roots. Release it at the run's terminal state.
type Guard struct {
	locks []*flock.Flock
}

// Release drops every held lock. Safe to call more than once.
func (g *Guard) Release() {
	if g == nil {
		return
	}
	for _, lock := range g.locks {
		_ = lock.Unlock()
	}
	g.locks = nil
}

// Detector validates that a run's destination day-folder does not exist yet.
type Detector struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Detector {
	return &Detector{logger: logging.NewComponentLogger(logger, "collision")}
}

// Check verifies that root/<profile destination>/<date> is absent in every
// candidate root and returns a Guard over the roots that exist. Roots missing
// from the filesystem are skipped: an unreachable store cannot collide, and
// the router decides later whether the run can proceed at all.
//
// A collision is probed before the root's lock file is created, so a refused
// run leaves the colliding root untouched.
func (d *Detector) Check(profile *profiles.CameraProfile, date string, roots ...string) (*Guard, error) {
	guard := &Guard{}

	for _, root := range roots {
		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			guard.Release()
			return nil, services.Wrap(services.ErrTransfer, "checking-collision", "stat root", root, err)
		}
		if !info.IsDir() {
			guard.Release()
			return nil, services.Wrap(services.ErrConfiguration, "checking-collision", "destination root",
				fmt.Sprintf("%s is not a directory", root), nil)
		}

		// Probe before locking: TryLock creates the lock file, and a run
		// that is about to report a collision must not touch the root.
		dest := profile.DestinationDir(root, date)
		if err := probeAbsent(dest); err != nil {
			guard.Release()
			return nil, err
		}

		lock := flock.New(filepath.Join(root, lockFileName))
		held, err := lock.TryLock()
		if err != nil {
			guard.Release()
			return nil, services.Wrap(services.ErrTransfer, "checking-collision", "lock root", root, err)
		}
		if !held {
			guard.Release()
			return nil, services.Wrap(services.ErrCollision, "checking-collision", "lock root",
				fmt.Sprintf("another import is writing to %s", root), nil)
		}
		guard.locks = append(guard.locks, lock)

		// Re-probe under the lock: a racing run may have created the
		// day-folder between the first probe and the lock.
		if err := probeAbsent(dest); err != nil {
			guard.Release()
			return nil, err
		}

		d.logger.Debug("destination clear",
			logging.String("root", root),
			logging.String("destination", dest),
		)
	}

	return guard, nil
}

// probeAbsent reports a collision when the destination day-folder exists.
func probeAbsent(dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return services.Wrap(services.ErrCollision, "checking-collision", "probe",
			fmt.Sprintf("destination %s already exists", dest), nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrTransfer, "checking-collision", "probe", dest, err)
	}
	return nil
}
