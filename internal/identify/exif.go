package identify

import (
	"strings"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"
)

// Metadata is the camera identity embedded in a sampled media file.
type Metadata struct {
	Make  string
	Model string
}

// String renders the metadata in the form patterns are matched against.
func (m Metadata) String() string {
	return strings.TrimSpace(strings.TrimSpace(m.Make) + " " + strings.TrimSpace(m.Model))
}

// MetadataReader extracts camera identity from a media file.
type MetadataReader interface {
	ReadMetadata(path string) (Metadata, error)
}

// ExifReader reads Make and Model EXIF tags. JPEG and TIFF-based raw formats
// are supported; files without parseable EXIF return an error and are skipped
// by the sampler.
type ExifReader struct {
	FS afero.Fs
}

func (r ExifReader) ReadMetadata(path string) (Metadata, error) {
	file, err := r.FS.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer file.Close()

	x, err := goexif.Decode(file)
	if err != nil {
		return Metadata{}, err
	}

	var meta Metadata
	if tag, err := x.Get(goexif.Make); err == nil {
		if value, err := tag.StringVal(); err == nil {
			meta.Make = strings.TrimSpace(value)
		}
	}
	if tag, err := x.Get(goexif.Model); err == nil {
		if value, err := tag.StringVal(); err == nil {
			meta.Model = strings.TrimSpace(value)
		}
	}
	return meta, nil
}
