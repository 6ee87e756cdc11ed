package identify

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"cardoff/internal/logging"
	"cardoff/internal/profiles"
	"cardoff/internal/scan"
	"cardoff/internal/services"
)

// Sample records the metadata read from one sampled file, kept for
// diagnostics when identification fails.
type Sample struct {
	Rel      string
	Metadata Metadata
}

// Identification is the successful result of classifying a volume.
type Identification struct {
	Profile    *profiles.CameraProfile
	Confidence int
	Samples    []Sample
}

// Identifier evaluates camera profiles against a mounted source root.
type Identifier struct {
	profiles    []profiles.CameraProfile
	scanner     *scan.Scanner
	reader      MetadataReader
	sampleFiles int
	threshold   int
	logger      *slog.Logger
}

// New constructs an Identifier. The reader may be nil, in which case EXIF
// tags are read from the scanner's filesystem.
func New(cams []profiles.CameraProfile, scanner *scan.Scanner, reader MetadataReader, sampleFiles, threshold int, logger *slog.Logger) *Identifier {
	if reader == nil {
		reader = ExifReader{FS: scanner.FS}
	}
	if sampleFiles < 1 {
		sampleFiles = 1
	}
	return &Identifier{
		profiles:    cams,
		scanner:     scanner,
		reader:      reader,
		sampleFiles: sampleFiles,
		threshold:   threshold,
		logger:      logging.NewComponentLogger(logger, "identifier"),
	}
}

// Identify returns the first profile whose structural rules fully pass and
// whose metadata confidence crosses the threshold, or an unidentified-camera
// failure carrying the sampled metadata. It never guesses.
func (i *Identifier) Identify(ctx context.Context, root string) (*Identification, error) {
	var allSamples []Sample

	for idx := range i.profiles {
		profile := &i.profiles[idx]
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		ok, err := i.structuralMatch(root, profile)
		if err != nil {
			return nil, services.Wrap(services.ErrTransfer, "identifying", "structural probe", profile.Name, err)
		}
		if !ok {
			i.logger.Debug("structural rules rejected profile",
				logging.String("profile", profile.Name))
			continue
		}

		samples, err := i.sampleMetadata(ctx, root, profile)
		if err != nil {
			return nil, err
		}
		allSamples = append(allSamples, samples...)

		confidence := scoreSamples(profile, samples)
		passed := confidence >= i.threshold
		if len(profile.DetectionRules.FilePatterns) == 0 {
			// A profile with no metadata patterns is identified by structure
			// alone; its structural signatures already passed.
			passed = true
		}

		i.logger.Debug("profile evaluated",
			logging.String("profile", profile.Name),
			logging.Int("confidence", confidence),
			logging.Int("threshold", i.threshold),
			logging.Bool("selected", passed),
		)
		if passed {
			return &Identification{Profile: profile, Confidence: confidence, Samples: samples}, nil
		}
	}

	detail := describeSamples(allSamples)
	return nil, services.Wrap(services.ErrUnidentifiedCamera, "identifying", "classify", detail, nil)
}

// structuralMatch applies the folder signatures. A missing required path
// rejects the profile regardless of metadata.
func (i *Identifier) structuralMatch(root string, profile *profiles.CameraProfile) (bool, error) {
	for _, rule := range profile.DetectionRules.FolderStructure {
		path := filepath.Join(root, filepath.FromSlash(rule.Path))
		exists, err := afero.Exists(i.scanner.FS, path)
		if err != nil {
			return false, err
		}
		if !exists && rule.Required {
			return false, nil
		}
	}
	return true, nil
}

// sampleMetadata reads embedded tags from the first media files of the
// profile's photo sources. Files without parseable metadata are skipped, not
// fatal: raw formats vary and the pattern gate decides acceptance.
func (i *Identifier) sampleMetadata(ctx context.Context, root string, profile *profiles.CameraProfile) ([]Sample, error) {
	var photoTrees []profiles.SourceTree
	for _, tree := range profile.SourceTrees() {
		if tree.Kind == profiles.MediaPhotos {
			photoTrees = append(photoTrees, tree)
		}
	}
	if len(photoTrees) == 0 {
		return nil, nil
	}

	entries, err := i.scanner.Enumerate(ctx, root, photoTrees)
	if err != nil {
		return nil, services.Wrap(services.ErrTransfer, "identifying", "enumerate samples", profile.Name, err)
	}

	samples := make([]Sample, 0, i.sampleFiles)
	for _, entry := range entries {
		if len(samples) >= i.sampleFiles {
			break
		}
		meta, readErr := i.reader.ReadMetadata(filepath.Join(root, filepath.FromSlash(entry.Rel)))
		if readErr != nil {
			i.logger.Debug("metadata unreadable, skipping sample",
				logging.String("file", entry.Rel),
				logging.Error(readErr))
			continue
		}
		samples = append(samples, Sample{Rel: entry.Rel, Metadata: meta})
	}
	return samples, nil
}

// scoreSamples accumulates pattern confidence. Each pattern contributes its
// weight once no matter how many samples it matches.
func scoreSamples(profile *profiles.CameraProfile, samples []Sample) int {
	score := 0
	for _, pattern := range profile.DetectionRules.FilePatterns {
		needle := strings.ToLower(strings.TrimSpace(pattern.Pattern))
		if needle == "" {
			continue
		}
		for _, sample := range samples {
			if strings.Contains(strings.ToLower(sample.Metadata.String()), needle) {
				score += pattern.Confidence
				break
			}
		}
	}
	return score
}

func describeSamples(samples []Sample) string {
	if len(samples) == 0 {
		return "no profile matched; no readable metadata sampled"
	}
	parts := make([]string, 0, len(samples))
	for _, sample := range samples {
		parts = append(parts, fmt.Sprintf("%s=%q", sample.Rel, sample.Metadata.String()))
	}
	return "no profile matched; sampled " + strings.Join(parts, ", ")
}
