package verify

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardoff/internal/logging"
	"cardoff/internal/profiles"
	"cardoff/internal/scan"
)

func memScanner(t *testing.T) (*scan.Scanner, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return &scan.Scanner{FS: fs, Workers: 2}, fs
}

func seed(t *testing.T, fs afero.Fs, root, rel, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, root+"/"+rel, []byte(content), 0o644))
}

func cardTrees() []profiles.SourceTree {
	return []profiles.SourceTree{
		{Path: "DCIM", Extensions: []string{"ARW"}, Kind: profiles.MediaPhotos},
	}
}

func digestCard(t *testing.T, scanner *scan.Scanner, root string) map[string]scan.FileRecord {
	t.Helper()
	records, err := scanner.Digest(context.Background(), root, cardTrees())
	require.NoError(t, err)
	return records
}

func TestVerifyAllMatch(t *testing.T) {
	scanner, fs := memScanner(t)
	seed(t, fs, "/card", "DCIM/DSC00001.ARW", "raw one")
	seed(t, fs, "/card", "DCIM/DSC00002.ARW", "raw two")
	seed(t, fs, "/dst", "DCIM/DSC00001.ARW", "raw one")
	seed(t, fs, "/dst", "DCIM/DSC00002.ARW", "raw two")

	source := digestCard(t, scanner, "/card")

	v := New(scanner, logging.NewNop())
	report, err := v.Verify(context.Background(), "/dst", cardTrees(), source)
	require.NoError(t, err)
	assert.True(t, report.Passed())
	assert.Equal(t, 2, report.Matched)
	assert.Empty(t, report.Failures())
}

func TestVerifyDetectsTruncation(t *testing.T) {
	scanner, fs := memScanner(t)
	seed(t, fs, "/card", "DCIM/DSC00001.ARW", "raw one")
	seed(t, fs, "/dst", "DCIM/DSC00001.ARW", "raw")

	source := digestCard(t, scanner, "/card")

	v := New(scanner, logging.NewNop())
	report, err := v.Verify(context.Background(), "/dst", cardTrees(), source)
	require.NoError(t, err)
	assert.False(t, report.Passed())

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, StatusSizeMismatch, failures[0].Status)
	assert.Equal(t, int64(7), failures[0].SourceSize)
	assert.Equal(t, int64(3), failures[0].DestSize)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	scanner, fs := memScanner(t)
	seed(t, fs, "/card", "DCIM/DSC00001.ARW", "raw one")
	seed(t, fs, "/dst", "DCIM/DSC00001.ARW", "raw ene")

	source := digestCard(t, scanner, "/card")

	v := New(scanner, logging.NewNop())
	report, err := v.Verify(context.Background(), "/dst", cardTrees(), source)
	require.NoError(t, err)
	require.Len(t, report.Failures(), 1)
	assert.Equal(t, StatusChecksumMismatch, report.Failures()[0].Status)
}

func TestVerifyDetectsMissing(t *testing.T) {
	scanner, fs := memScanner(t)
	seed(t, fs, "/card", "DCIM/DSC00001.ARW", "raw one")
	seed(t, fs, "/card", "DCIM/DSC00002.ARW", "raw two")
	seed(t, fs, "/dst", "DCIM/DSC00001.ARW", "raw one")

	source := digestCard(t, scanner, "/card")

	v := New(scanner, logging.NewNop())
	report, err := v.Verify(context.Background(), "/dst", cardTrees(), source)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	require.Len(t, report.Failures(), 1)
	assert.Equal(t, StatusMissing, report.Failures()[0].Status)
	assert.Equal(t, "DCIM/DSC00002.ARW", report.Failures()[0].Rel)
}

func TestVerifyFlagsDestinationOnlyFiles(t *testing.T) {
	scanner, fs := memScanner(t)
	seed(t, fs, "/card", "DCIM/DSC00001.ARW", "raw one")
	seed(t, fs, "/dst", "DCIM/DSC00001.ARW", "raw one")
	seed(t, fs, "/dst", "DCIM/UNRELATED.ARW", "someone else's file")

	source := digestCard(t, scanner, "/card")

	v := New(scanner, logging.NewNop())
	report, err := v.Verify(context.Background(), "/dst", cardTrees(), source)
	require.NoError(t, err)
	assert.False(t, report.Passed())

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "DCIM/UNRELATED.ARW", failures[0].Rel)
	assert.Equal(t, StatusMissing, failures[0].Status)
	assert.Zero(t, failures[0].SourceSize)
	assert.NotZero(t, failures[0].DestSize)
}

func TestVerifySkipsFilteredDestinationEntries(t *testing.T) {
	scanner, fs := memScanner(t)
	seed(t, fs, "/card", "DCIM/DSC00001.ARW", "raw one")
	seed(t, fs, "/dst", "DCIM/DSC00001.ARW", "raw one")
	seed(t, fs, "/dst", "DCIM/.thumbnail.ARW", "hidden")
	seed(t, fs, "/dst", "DCIM/C0001.XML", "sidecar")

	source := digestCard(t, scanner, "/card")

	v := New(scanner, logging.NewNop())
	report, err := v.Verify(context.Background(), "/dst", cardTrees(), source)
	require.NoError(t, err)
	assert.True(t, report.Passed())
	assert.Len(t, report.Files, 1)
}
