// Package fileutil implements the crash-safe file copy primitive used by the
// transfer executor.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyAtomic streams src to dst through a temporary name in dst's directory
// and renames it into place, so a crash mid-copy never leaves a half-written
// file at the final path. The write is flushed to stable storage before the
// rename. Returns the byte count and hex SHA-256 of the copied stream.
//
// The copy aborts with an error if the byte count read from src disagrees
// with src's size at open time.
func CopyAtomic(src, dst string, preserveTimes bool) (int64, string, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, "", fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, "", err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".partial-*")
	if err != nil {
		return 0, "", err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), in)
	if err != nil {
		cleanup()
		return 0, "", err
	}
	if written != srcInfo.Size() {
		cleanup()
		return 0, "", fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, "", err
	}

	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return 0, "", err
	}

	if preserveTimes {
		_ = os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
	}

	return written, hex.EncodeToString(hasher.Sum(nil)), nil
}
