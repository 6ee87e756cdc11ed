// Package verify re-reads both sides of a completed transfer and compares
// them file by file. Verification trusts nothing from the transfer pass: the
// destination is re-enumerated and re-digested from disk, so a torn write,
// truncation, or bit rot between copy and check is caught here.
package verify

import (
	"context"
	"log/slog"
	"sort"

	"cardoff/internal/logging"
	"cardoff/internal/profiles"
	"cardoff/internal/scan"
	"cardoff/internal/services"
)

// Status classifies one file's comparison outcome.
type Status string

const (
	StatusMatch            Status = "match"
	StatusMissing          Status = "missing"
	StatusSizeMismatch     Status = "size-mismatch"
	StatusChecksumMismatch Status = "checksum-mismatch"
)

// FileResult is the per-file verdict within a report.
type FileResult struct {
	Rel    string
	Status Status
	// A zero SourceSize or DestSize means the file is absent on that side.
	SourceSize int64
	DestSize   int64
}

// Report is the full outcome of verifying one run. Passed is true only when
// the two sides hold the same path set and every path is digest-equal.
type Report struct {
	Files   []FileResult
	Matched int
	Failed  int
}

func (r *Report) Passed() bool {
	return r.Failed == 0
}

// Failures returns only the non-matching results.
func (r *Report) Failures() []FileResult {
	failures := make([]FileResult, 0, r.Failed)
	for _, f := range r.Files {
		if f.Status != StatusMatch {
			failures = append(failures, f)
		}
	}
	return failures
}

// Verifier compares source digests against a freshly digested destination.
type Verifier struct {
	scanner *scan.Scanner
	logger  *slog.Logger
}

func New(scanner *scan.Scanner, logger *slog.Logger) *Verifier {
	return &Verifier{
		scanner: scanner,
		logger:  logging.NewComponentLogger(logger, "verify"),
	}
}

// Verify enumerates dstDir with the same subtree filter the transfer uses and
// compares the result against the source records, path set against path set.
// A path present on only one side is reported missing; a destination file the
// run did not put there fails the comparison just like a file the run lost.
// The report is ordered by relative path.
func (v *Verifier) Verify(ctx context.Context, dstDir string, trees []profiles.SourceTree, source map[string]scan.FileRecord) (*Report, error) {
	destEntries, err := v.scanner.Enumerate(ctx, dstDir, trees)
	if err != nil {
		return nil, services.Wrap(services.ErrVerification, "verifying", "enumerate destination", dstDir, err)
	}

	expected := make([]scan.Entry, 0, len(destEntries))
	var unexpected []scan.Entry
	for _, entry := range destEntries {
		if _, ok := source[entry.Rel]; ok {
			expected = append(expected, entry)
		} else {
			unexpected = append(unexpected, entry)
		}
	}

	dest, err := v.scanner.DigestEntries(ctx, dstDir, expected)
	if err != nil {
		return nil, services.Wrap(services.ErrVerification, "verifying", "digest destination", dstDir, err)
	}

	rels := make([]string, 0, len(source)+len(unexpected))
	for rel := range source {
		rels = append(rels, rel)
	}
	for _, entry := range unexpected {
		rels = append(rels, entry.Rel)
	}
	sort.Strings(rels)

	destOnly := make(map[string]int64, len(unexpected))
	for _, entry := range unexpected {
		destOnly[entry.Rel] = entry.Size
	}

	report := &Report{Files: make([]FileResult, 0, len(rels))}
	for _, rel := range rels {
		var result FileResult
		if size, ok := destOnly[rel]; ok {
			// Present only at the destination: this run never copied it,
			// so its provenance is unknown.
			result = FileResult{Rel: rel, Status: StatusMissing, DestSize: size}
		} else {
			src := source[rel]
			result = FileResult{Rel: rel, SourceSize: src.Size}

			dst, ok := dest[rel]
			switch {
			case !ok:
				result.Status = StatusMissing
			case dst.Size != src.Size:
				result.Status = StatusSizeMismatch
				result.DestSize = dst.Size
			case dst.Digest != src.Digest:
				result.Status = StatusChecksumMismatch
				result.DestSize = dst.Size
			default:
				result.Status = StatusMatch
				result.DestSize = dst.Size
			}
		}

		if result.Status == StatusMatch {
			report.Matched++
		} else {
			report.Failed++
			v.logger.Warn("verification failure",
				logging.String("file", rel),
				logging.String("status", string(result.Status)),
			)
		}
		report.Files = append(report.Files, result)
	}

	v.logger.Info("verification complete",
		logging.Int("matched", report.Matched),
		logging.Int("failed", report.Failed),
	)
	return report, nil
}
