package scan

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"cardoff/internal/profiles"
)

// Entry is one file admitted by the inclusion filter, prior to digesting.
type Entry struct {
	// Rel is the slash-separated path relative to the scanned root, including
	// the source subtree prefix. It is the key files are compared under and
	// the layout they keep at the destination.
	Rel  string
	Size int64
	Kind profiles.MediaKind
}

// Summary aggregates an enumeration for pre-transfer reporting.
type Summary struct {
	Files      int
	TotalBytes int64
	Photos     int
	Videos     int
}

// Scanner walks registered source subtrees applying the shared inclusion
// filter.
type Scanner struct {
	FS afero.Fs
	// Workers bounds concurrent digest computation. Values below 1 mean one.
	Workers int
}

// New returns a Scanner over the OS filesystem.
func New(workers int) *Scanner {
	return &Scanner{FS: afero.NewOsFs(), Workers: workers}
}

// Enumerate lists every included file under root for the given subtrees,
// sorted by relative path. Subtrees absent from the volume are skipped: cards
// routinely omit optional trees (no clips shot, for example).
func (s *Scanner) Enumerate(ctx context.Context, root string, trees []profiles.SourceTree) ([]Entry, error) {
	var entries []Entry
	seen := make(map[string]struct{})

	for _, tree := range trees {
		treeRoot := filepath.Join(root, filepath.FromSlash(tree.Path))
		exists, err := afero.DirExists(s.FS, treeRoot)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}

		walkErr := afero.Walk(s.FS, treeRoot, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			name := info.Name()
			if info.IsDir() {
				if path != treeRoot && hiddenEntry(name) {
					return filepath.SkipDir
				}
				return nil
			}
			if hiddenEntry(name) || !tree.Allows(name) {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)
			if _, dup := seen[rel]; dup {
				return nil
			}
			seen[rel] = struct{}{}
			entries = append(entries, Entry{Rel: rel, Size: info.Size(), Kind: tree.Kind})
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Rel < entries[j].Rel })
	return entries, nil
}

// Summarize folds entries into the counts reported to the confirmation gate.
func Summarize(entries []Entry) Summary {
	var sum Summary
	for _, entry := range entries {
		sum.Files++
		sum.TotalBytes += entry.Size
		switch entry.Kind {
		case profiles.MediaPhotos:
			sum.Photos++
		case profiles.MediaVideos:
			sum.Videos++
		}
	}
	return sum
}

// hiddenEntry matches hidden and system metadata entries excluded from every
// transfer and comparison: dotfiles (covers .DS_Store, ._AppleDouble,
// .Trashes) and the FAT "System Volume Information" tree.
func hiddenEntry(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return strings.EqualFold(name, "System Volume Information")
}
