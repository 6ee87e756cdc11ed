package profiles

import (
	"path/filepath"
	"strings"
)

// MediaKind labels a source subtree as photo or video storage.
type MediaKind string

const (
	MediaPhotos MediaKind = "photos"
	MediaVideos MediaKind = "videos"
)

// DateToken is the placeholder replaced with the import date inside
// destination templates.
const DateToken = "{date}"

// FolderRule is a structural detection signature: a subpath that must (or may)
// exist on the mounted volume.
type FolderRule struct {
	Path     string `yaml:"path"`
	Required bool   `yaml:"required"`
}

// FilePattern is a metadata detection rule matched against sampled media
// metadata, contributing Confidence points on a hit.
type FilePattern struct {
	Pattern    string `yaml:"pattern"`
	Confidence int    `yaml:"confidence"`
}

// DetectionRules groups the ordered rules used to classify a volume.
type DetectionRules struct {
	FolderStructure []FolderRule  `yaml:"folder_structure"`
	FilePatterns    []FilePattern `yaml:"file_patterns"`
}

// SourceTree is one registered subtree of the card holding media files with
// the given allowed extensions.
type SourceTree struct {
	Path       string   `yaml:"path"`
	Extensions []string `yaml:"extensions"`

	// Kind is derived from the file_sources section the tree appears under.
	Kind MediaKind `yaml:"-"`
}

// FileSources groups the registered source subtrees by media kind.
type FileSources struct {
	Photos []SourceTree `yaml:"photos"`
	Videos []SourceTree `yaml:"videos"`
}

// CameraProfile describes how to recognize one camera model and where its
// files live. Declaration order in the profiles file is the priority order
// used by the identifier.
type CameraProfile struct {
	Name                 string         `yaml:"name"`
	DetectionRules       DetectionRules `yaml:"detection_rules"`
	FileSources          FileSources    `yaml:"file_sources"`
	DestinationStructure string         `yaml:"destination_structure"`
}

// SourceTrees returns every registered subtree, photos first, each tagged with
// its media kind.
func (p *CameraProfile) SourceTrees() []SourceTree {
	trees := make([]SourceTree, 0, len(p.FileSources.Photos)+len(p.FileSources.Videos))
	for _, tree := range p.FileSources.Photos {
		tree.Kind = MediaPhotos
		trees = append(trees, tree)
	}
	for _, tree := range p.FileSources.Videos {
		tree.Kind = MediaVideos
		trees = append(trees, tree)
	}
	return trees
}

// DestinationDir resolves the destination day-folder for the given root and
// import date by expanding the profile's destination template.
func (p *CameraProfile) DestinationDir(root, date string) string {
	template := strings.TrimSpace(p.DestinationStructure)
	if template == "" {
		template = filepath.Join(p.Name, DateToken)
	}
	resolved := strings.ReplaceAll(template, DateToken, date)
	return filepath.Join(root, filepath.FromSlash(resolved))
}

// Allows reports whether the tree's extension set admits the given filename.
// Matching is case-insensitive and tolerates declarations with or without a
// leading dot.
func (t SourceTree) Allows(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, allowed := range t.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(allowed))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if normalized == ext {
			return true
		}
	}
	return false
}
