// Package cleanup deletes source files from the card after a verified
// transfer. Deletion is double-gated: the verification report must have
// passed and the delete_originals policy must be enabled. Every file is
// journaled before its unlink, so the audit trail exists even if the card is
// yanked mid-cleanup.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"cardoff/internal/journal"
	"cardoff/internal/logging"
	"cardoff/internal/scan"
	"cardoff/internal/services"
	"cardoff/internal/verify"
)

// Result summarizes one cleanup pass.
type Result struct {
	// Deleted counts files removed from the source.
	Deleted int
	// Skipped is true when the policy or the report kept cleanup from
	// running at all.
	Skipped bool
	// Failures lists files that could not be removed. Non-empty failures
	// downgrade the run to a warning, never a failure: the data is safe at
	// the destination either way.
	Failures []string
}

// Auditor records deletions before they happen.
type Auditor interface {
	RecordCleanup(ctx context.Context, runID string, records []journal.CleanupRecord) error
}

// Controller applies the post-transfer deletion policy.
type Controller struct {
	deleteOriginals bool
	auditor         Auditor
	logger          *slog.Logger
}

func New(deleteOriginals bool, auditor Auditor, logger *slog.Logger) *Controller {
	return &Controller{
		deleteOriginals: deleteOriginals,
		auditor:         auditor,
		logger:          logging.NewComponentLogger(logger, "cleanup"),
	}
}

// Run deletes the verified source files under srcRoot. It refuses to delete
// anything unless the report passed, and journals the full batch before the
// first unlink. Empty directories left behind inside the scanned subtrees are
// pruned best-effort.
func (c *Controller) Run(ctx context.Context, runID, srcRoot string, report *verify.Report, source map[string]scan.FileRecord) (*Result, error) {
	if !report.Passed() {
		return nil, services.Wrap(services.ErrCleanup, "cleaning-up", "gate",
			"refusing to delete sources: verification did not pass", nil)
	}
	if !c.deleteOriginals {
		c.logger.Info("cleanup disabled by policy, sources kept")
		return &Result{Skipped: true}, nil
	}

	rels := make([]string, 0, len(source))
	records := make([]journal.CleanupRecord, 0, len(source))
	for rel, record := range source {
		rels = append(rels, rel)
		records = append(records, journal.CleanupRecord{
			RunID:  runID,
			Rel:    rel,
			Size:   record.Size,
			Digest: record.Digest,
		})
	}
	sort.Strings(rels)
	sort.Slice(records, func(i, j int) bool { return records[i].Rel < records[j].Rel })

	if err := c.auditor.RecordCleanup(ctx, runID, records); err != nil {
		return nil, services.Wrap(services.ErrCleanup, "cleaning-up", "journal",
			"refusing to delete sources: audit write failed", err)
	}

	result := &Result{}
	for _, rel := range rels {
		path := filepath.Join(srcRoot, filepath.FromSlash(rel))
		if err := os.Remove(path); err != nil {
			c.logger.Warn("failed to delete source file",
				logging.String("file", rel),
				logging.Error(err),
			)
			result.Failures = append(result.Failures, rel)
			continue
		}
		result.Deleted++
	}

	c.pruneEmptyDirs(srcRoot, rels)

	c.logger.Info("cleanup complete",
		logging.Int("deleted", result.Deleted),
		logging.Int("failed", len(result.Failures)),
	)
	if len(result.Failures) > 0 {
		return result, services.Wrap(services.ErrCleanup, "cleaning-up", "delete",
			fmt.Sprintf("%d source files could not be deleted", len(result.Failures)), nil)
	}
	return result, nil
}

// pruneEmptyDirs removes directories emptied by the deletions, walking each
// file's parent chain up to (but never including) the card root. Removal
// stops at the first non-empty parent.
func (c *Controller) pruneEmptyDirs(srcRoot string, rels []string) {
	seen := make(map[string]struct{})
	for _, rel := range rels {
		dir := filepath.Dir(filepath.FromSlash(rel))
		for dir != "." && dir != string(filepath.Separator) {
			if _, done := seen[dir]; done {
				break
			}
			seen[dir] = struct{}{}
			if err := os.Remove(filepath.Join(srcRoot, dir)); err != nil {
				break
			}
			dir = filepath.Dir(dir)
		}
	}
}
