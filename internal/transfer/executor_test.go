package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardoff/internal/logging"
	"cardoff/internal/profiles"
	"cardoff/internal/scan"
	"cardoff/internal/services"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func cardTrees() []profiles.SourceTree {
	return []profiles.SourceTree{
		{Path: "DCIM", Extensions: []string{"ARW", "JPG"}, Kind: profiles.MediaPhotos},
	}
}

func prepare(t *testing.T) (*scan.Scanner, string, []scan.Entry, map[string]scan.FileRecord) {
	t.Helper()

	card := t.TempDir()
	writeFile(t, card, "DCIM/100MSDCF/DSC00001.ARW", "raw one")
	writeFile(t, card, "DCIM/100MSDCF/DSC00002.JPG", "jpeg two")

	scanner := scan.New(2)
	ctx := context.Background()
	entries, err := scanner.Enumerate(ctx, card, cardTrees())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	records, err := scanner.DigestEntries(ctx, card, entries)
	require.NoError(t, err)

	return scanner, card, entries, records
}

func TestRunCopiesAllFiles(t *testing.T) {
	scanner, card, entries, records := prepare(t)
	dst := filepath.Join(t.TempDir(), "Sony A7C", "20260831")

	exec := New(scanner, false, logging.NewNop())
	result, err := exec.Run(context.Background(), card, dst, entries, records)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Copied)
	assert.Equal(t, 0, result.Skipped)

	data, err := os.ReadFile(filepath.Join(dst, "DCIM", "100MSDCF", "DSC00001.ARW"))
	require.NoError(t, err)
	assert.Equal(t, "raw one", string(data))
}

func TestRunSkipsAlreadyTransferred(t *testing.T) {
	scanner, card, entries, records := prepare(t)
	dst := filepath.Join(t.TempDir(), "out")

	exec := New(scanner, false, logging.NewNop())
	_, err := exec.Run(context.Background(), card, dst, entries, records)
	require.NoError(t, err)

	second, err := exec.Run(context.Background(), card, dst, entries, records)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Copied)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, int64(0), second.Bytes)
}

func TestRunRedoesCorruptedDestination(t *testing.T) {
	scanner, card, entries, records := prepare(t)
	dst := filepath.Join(t.TempDir(), "out")

	exec := New(scanner, false, logging.NewNop())
	_, err := exec.Run(context.Background(), card, dst, entries, records)
	require.NoError(t, err)

	// Truncate one destination file to simulate a torn earlier pass.
	corrupted := filepath.Join(dst, "DCIM", "100MSDCF", "DSC00002.JPG")
	require.NoError(t, os.WriteFile(corrupted, []byte("jp"), 0o644))

	result, err := exec.Run(context.Background(), card, dst, entries, records)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Copied)
	assert.Equal(t, 1, result.Skipped)

	data, err := os.ReadFile(corrupted)
	require.NoError(t, err)
	assert.Equal(t, "jpeg two", string(data))
}

func TestRunCanceledBetweenFiles(t *testing.T) {
	scanner, card, entries, records := prepare(t)
	dst := filepath.Join(t.TempDir(), "out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := New(scanner, false, logging.NewNop())
	_, err := exec.Run(ctx, card, dst, entries, records)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrTransfer)
	assert.True(t, services.Retryable(err))
}

func TestRunMissingSourceRecord(t *testing.T) {
	scanner, card, entries, _ := prepare(t)
	dst := filepath.Join(t.TempDir(), "out")

	exec := New(scanner, false, logging.NewNop())
	_, err := exec.Run(context.Background(), card, dst, entries, map[string]scan.FileRecord{})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrTransfer)
}
