package cleanup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardoff/internal/journal"
	"cardoff/internal/logging"
	"cardoff/internal/scan"
	"cardoff/internal/services"
	"cardoff/internal/verify"
)

type fakeAuditor struct {
	recorded []journal.CleanupRecord
	err      error
}

func (f *fakeAuditor) RecordCleanup(_ context.Context, _ string, records []journal.CleanupRecord) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, records...)
	return nil
}

func passedReport(matched int) *verify.Report {
	return &verify.Report{Matched: matched}
}

func seedCard(t *testing.T) (string, map[string]scan.FileRecord) {
	t.Helper()
	card := t.TempDir()
	source := map[string]scan.FileRecord{}
	for rel, content := range map[string]string{
		"DCIM/100MSDCF/DSC00001.ARW": "raw one",
		"DCIM/100MSDCF/DSC00002.JPG": "jpeg two",
	} {
		path := filepath.Join(card, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		source[rel] = scan.FileRecord{Rel: rel, Size: int64(len(content)), Digest: "d-" + rel}
	}
	return card, source
}

func TestRunDeletesVerifiedSources(t *testing.T) {
	card, source := seedCard(t)
	auditor := &fakeAuditor{}

	ctrl := New(true, auditor, logging.NewNop())
	result, err := ctrl.Run(context.Background(), "run-1", card, passedReport(2), source)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Deleted)
	assert.Empty(t, result.Failures)

	// All files journaled before deletion, sorted by path.
	require.Len(t, auditor.recorded, 2)
	assert.Equal(t, "DCIM/100MSDCF/DSC00001.ARW", auditor.recorded[0].Rel)

	// Files and the emptied directory chain are gone; the card root stays.
	_, statErr := os.Stat(filepath.Join(card, "DCIM"))
	assert.True(t, os.IsNotExist(statErr))
	assert.DirExists(t, card)
}

func TestRunRefusesFailedReport(t *testing.T) {
	card, source := seedCard(t)

	ctrl := New(true, &fakeAuditor{}, logging.NewNop())
	report := &verify.Report{Matched: 1, Failed: 1}
	_, err := ctrl.Run(context.Background(), "run-1", card, report, source)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrCleanup)

	assert.FileExists(t, filepath.Join(card, "DCIM", "100MSDCF", "DSC00001.ARW"))
}

func TestRunSkipsWhenPolicyDisabled(t *testing.T) {
	card, source := seedCard(t)

	ctrl := New(false, &fakeAuditor{}, logging.NewNop())
	result, err := ctrl.Run(context.Background(), "run-1", card, passedReport(2), source)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.FileExists(t, filepath.Join(card, "DCIM", "100MSDCF", "DSC00001.ARW"))
}

func TestRunRefusesWhenAuditFails(t *testing.T) {
	card, source := seedCard(t)
	auditor := &fakeAuditor{err: errors.New("disk full")}

	ctrl := New(true, auditor, logging.NewNop())
	_, err := ctrl.Run(context.Background(), "run-1", card, passedReport(2), source)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrCleanup)
	assert.FileExists(t, filepath.Join(card, "DCIM", "100MSDCF", "DSC00002.JPG"))
}

func TestRunReportsDeletionFailures(t *testing.T) {
	card, source := seedCard(t)
	// One file vanishes before cleanup runs; its unlink fails.
	require.NoError(t, os.Remove(filepath.Join(card, "DCIM", "100MSDCF", "DSC00002.JPG")))

	ctrl := New(true, &fakeAuditor{}, logging.NewNop())
	result, err := ctrl.Run(context.Background(), "run-1", card, passedReport(2), source)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrCleanup)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, []string{"DCIM/100MSDCF/DSC00002.JPG"}, result.Failures)
}
