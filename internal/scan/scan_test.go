package scan_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardoff/internal/profiles"
	"cardoff/internal/scan"
)

func memScanner(t *testing.T, files map[string]string) *scan.Scanner {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return &scan.Scanner{FS: fs, Workers: 2}
}

func sonyTrees() []profiles.SourceTree {
	return []profiles.SourceTree{
		{Path: "DCIM", Extensions: []string{".arw", ".jpg"}, Kind: profiles.MediaPhotos},
		{Path: "PRIVATE/M4ROOT/CLIP", Extensions: []string{".mp4"}, Kind: profiles.MediaVideos},
	}
}

func TestEnumerateAppliesFilter(t *testing.T) {
	s := memScanner(t, map[string]string{
		"/card/DCIM/100MSDCF/DSC00001.ARW":        "raw-1",
		"/card/DCIM/100MSDCF/DSC00002.JPG":        "jpeg-2",
		"/card/DCIM/100MSDCF/.hidden.ARW":         "hidden",
		"/card/DCIM/100MSDCF/DSC00003.XMP":        "sidecar",
		"/card/PRIVATE/M4ROOT/CLIP/C0001.MP4":     "clip",
		"/card/PRIVATE/M4ROOT/CLIP/C0001M01.XML":  "metadata",
		"/card/PRIVATE/M4ROOT/THMBNL/C0001T01.JPG": "thumb",
	})

	entries, err := s.Enumerate(context.Background(), "/card", sonyTrees())
	require.NoError(t, err)

	rels := make([]string, 0, len(entries))
	for _, entry := range entries {
		rels = append(rels, entry.Rel)
	}
	assert.Equal(t, []string{
		"DCIM/100MSDCF/DSC00001.ARW",
		"DCIM/100MSDCF/DSC00002.JPG",
		"PRIVATE/M4ROOT/CLIP/C0001.MP4",
	}, rels)
}

func TestEnumerateSkipsHiddenDirsAndMissingTrees(t *testing.T) {
	s := memScanner(t, map[string]string{
		"/card/DCIM/.Trashes/DSC09999.ARW": "trash",
		"/card/DCIM/100MSDCF/DSC00001.ARW": "keep",
	})

	entries, err := s.Enumerate(context.Background(), "/card", sonyTrees())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DCIM/100MSDCF/DSC00001.ARW", entries[0].Rel)
}

func TestSummarize(t *testing.T) {
	s := memScanner(t, map[string]string{
		"/card/DCIM/100MSDCF/DSC00001.ARW":    "12345",
		"/card/DCIM/100MSDCF/DSC00002.JPG":    "123",
		"/card/PRIVATE/M4ROOT/CLIP/C0001.MP4": "1234567",
	})
	entries, err := s.Enumerate(context.Background(), "/card", sonyTrees())
	require.NoError(t, err)

	sum := scan.Summarize(entries)
	assert.Equal(t, 3, sum.Files)
	assert.Equal(t, int64(15), sum.TotalBytes)
	assert.Equal(t, 2, sum.Photos)
	assert.Equal(t, 1, sum.Videos)
}

func TestDigestMatchesContent(t *testing.T) {
	content := "raw sensor payload"
	s := memScanner(t, map[string]string{
		"/card/DCIM/100MSDCF/DSC00001.ARW": content,
	})

	records, err := s.Digest(context.Background(), "/card", sonyTrees())
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records["DCIM/100MSDCF/DSC00001.ARW"]
	expected := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(expected[:]), record.Digest)
	assert.Equal(t, int64(len(content)), record.Size)
}

func TestDigestManyFilesWithBoundedWorkers(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 50; i++ {
		files["/card/DCIM/100MSDCF/DSC"+string(rune('A'+i%26))+string(rune('0'+i/26))+".JPG"] = "content"
	}
	s := memScanner(t, files)
	s.Workers = 3

	records, err := s.Digest(context.Background(), "/card", sonyTrees())
	require.NoError(t, err)
	assert.Len(t, records, len(files))
}

func TestDigestHonorsCancellation(t *testing.T) {
	s := memScanner(t, map[string]string{
		"/card/DCIM/100MSDCF/DSC00001.ARW": "a",
		"/card/DCIM/100MSDCF/DSC00002.ARW": "b",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Digest(ctx, "/card", sonyTrees())
	assert.Error(t, err)
}

func TestDigestFile(t *testing.T) {
	s := memScanner(t, map[string]string{"/x/file.bin": "payload"})
	size, digest, err := s.DigestFile("/x/file.bin")
	require.NoError(t, err)
	expected := sha256.Sum256([]byte("payload"))
	assert.Equal(t, int64(7), size)
	assert.Equal(t, hex.EncodeToString(expected[:]), digest)
}
