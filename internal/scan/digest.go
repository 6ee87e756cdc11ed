package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"sync"

	"cardoff/internal/profiles"
)

// FileRecord couples a relative path with the size and SHA-256 digest observed
// on one side of a comparison. Records are recomputed every run and never
// persisted.
type FileRecord struct {
	Rel    string
	Size   int64
	Digest string
}

// Digest enumerates root and computes a FileRecord per included file, keyed by
// relative path. Digesting fans out over a bounded worker pool; aggregation is
// keyed, so completion order cannot affect the result.
func (s *Scanner) Digest(ctx context.Context, root string, trees []profiles.SourceTree) (map[string]FileRecord, error) {
	entries, err := s.Enumerate(ctx, root, trees)
	if err != nil {
		return nil, err
	}
	return s.DigestEntries(ctx, root, entries)
}

// DigestEntries computes FileRecords for an already-enumerated entry list.
func (s *Scanner) DigestEntries(ctx context.Context, root string, entries []Entry) (map[string]FileRecord, error) {
	records := make(map[string]FileRecord, len(entries))
	if len(entries) == 0 {
		return records, nil
	}

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(entries) {
		workers = len(entries)
	}

	type result struct {
		record FileRecord
		err    error
	}

	jobs := make(chan Entry)
	results := make(chan result, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				record, err := s.digestOne(root, entry)
				results <- result{record: record, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entry := range entries {
			select {
			case <-ctx.Done():
				return
			case jobs <- entry:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		records[res.record.Rel] = res.record
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return records, nil
}

// digestOne hashes a single file. A file is always hashed to completion once
// started; cancellation is honored between files by the dispatch loop.
func (s *Scanner) digestOne(root string, entry Entry) (FileRecord, error) {
	path := filepath.Join(root, filepath.FromSlash(entry.Rel))
	file, err := s.FS.Open(path)
	if err != nil {
		return FileRecord{}, err
	}
	defer file.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return FileRecord{}, err
	}
	return FileRecord{
		Rel:    entry.Rel,
		Size:   size,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// DigestFile hashes one file on the scanner's filesystem and returns its size
// and hex digest.
func (s *Scanner) DigestFile(path string) (int64, string, error) {
	file, err := s.FS.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer file.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return 0, "", err
	}
	return size, hex.EncodeToString(hasher.Sum(nil)), nil
}
