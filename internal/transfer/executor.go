package transfer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"cardoff/internal/fileutil"
	"cardoff/internal/logging"
	"cardoff/internal/scan"
	"cardoff/internal/services"
)

// Result summarizes one transfer pass.
type Result struct {
	Copied  int
	Skipped int
	// Bytes counts bytes physically copied; skipped files contribute nothing.
	Bytes int64
}

// Executor copies files from a card root into a destination directory,
// preserving the relative layout produced by enumeration.
type Executor struct {
	scanner       *scan.Scanner
	preserveTimes bool
	logger        *slog.Logger
}

func New(scanner *scan.Scanner, preserveTimes bool, logger *slog.Logger) *Executor {
	return &Executor{
		scanner:       scanner,
		preserveTimes: preserveTimes,
		logger:        logging.NewComponentLogger(logger, "transfer"),
	}
}

// Run copies every entry from srcRoot into dstDir. Files already present at
// the destination with a digest matching the source record are skipped. A
// copy whose digest disagrees with the source record fails the pass; the
// partial temp file never reaches its final name, so the pass is retryable.
// Cancellation is honored between files, never mid-file.
func (e *Executor) Run(ctx context.Context, srcRoot, dstDir string, entries []scan.Entry, source map[string]scan.FileRecord) (*Result, error) {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransfer, "transferring", "create destination", dstDir, err)
	}

	result := &Result{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, services.Wrap(services.ErrTransfer, "transferring", "copy", "run canceled", err)
		}

		record, ok := source[entry.Rel]
		if !ok {
			return result, services.Wrap(services.ErrTransfer, "transferring", "copy",
				fmt.Sprintf("no source digest for %s", entry.Rel), nil)
		}

		src := filepath.Join(srcRoot, filepath.FromSlash(entry.Rel))
		dst := filepath.Join(dstDir, filepath.FromSlash(entry.Rel))

		skipped, err := e.alreadyTransferred(dst, record)
		if err != nil {
			return result, services.Wrap(services.ErrTransfer, "transferring", "probe destination", entry.Rel, err)
		}
		if skipped {
			e.logger.Debug("already transferred", logging.String("file", entry.Rel))
			result.Skipped++
			continue
		}

		written, digest, err := fileutil.CopyAtomic(src, dst, e.preserveTimes)
		if err != nil {
			return result, services.Wrap(services.ErrTransfer, "transferring", "copy", entry.Rel, err)
		}
		if digest != record.Digest {
			// The source changed between digesting and copying, or the
			// read path is unreliable. Remove the bad copy before failing.
			_ = os.Remove(dst)
			return result, services.Wrap(services.ErrTransfer, "transferring", "copy",
				fmt.Sprintf("digest mismatch for %s", entry.Rel), nil)
		}

		result.Copied++
		result.Bytes += written
	}

	e.logger.Info("transfer pass complete",
		logging.Int("copied", result.Copied),
		logging.Int("skipped", result.Skipped),
		logging.Int64("bytes", result.Bytes),
	)
	return result, nil
}

// alreadyTransferred reports whether dst exists with the expected digest. A
// present file with the wrong digest is removed so the copy can redo it; it
// is a leftover from an interrupted or corrupted earlier pass.
func (e *Executor) alreadyTransferred(dst string, record scan.FileRecord) (bool, error) {
	info, err := os.Stat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.Size() == record.Size {
		_, digest, err := e.scanner.DigestFile(dst)
		if err != nil {
			return false, err
		}
		if digest == record.Digest {
			return true, nil
		}
	}
	if err := os.Remove(dst); err != nil {
		return false, err
	}
	return false, nil
}
