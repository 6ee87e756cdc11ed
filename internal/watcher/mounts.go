package watcher

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

const mountsPath = "/proc/self/mounts"

// findMountPoint scans the mount table for the given device and returns its
// mount point when it sits under one of the allowed base directories.
func findMountPoint(device string, bases []string) (string, bool) {
	file, err := os.Open(mountsPath)
	if err != nil {
		return "", false
	}
	defer file.Close()
	return scanMounts(file, device, bases)
}

func scanMounts(r io.Reader, device string, bases []string) (string, bool) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if fields[0] != device {
			continue
		}
		mountPoint := unescapeMount(fields[1])
		if underAnyBase(mountPoint, bases) {
			return mountPoint, true
		}
	}
	return "", false
}

func underAnyBase(mountPoint string, bases []string) bool {
	for _, base := range bases {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base == "" {
			continue
		}
		if strings.HasPrefix(mountPoint, base+"/") {
			return true
		}
	}
	return false
}

// unescapeMount decodes the octal escapes the kernel uses for whitespace in
// mount paths (\040 for space and friends).
func unescapeMount(path string) string {
	if !strings.Contains(path, "\\") {
		return path
	}
	var builder strings.Builder
	for i := 0; i < len(path); i++ {
		if path[i] == '\\' && i+3 < len(path) {
			if code, err := strconv.ParseUint(path[i+1:i+4], 8, 8); err == nil {
				builder.WriteByte(byte(code))
				i += 3
				continue
			}
		}
		builder.WriteByte(path[i])
	}
	return builder.String()
}
