package profiles

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cardoff/internal/services"
)

type document struct {
	Cameras []CameraProfile `yaml:"cameras"`
}

// Load parses the camera profile declarations at path. The sequence order of
// the cameras list is preserved as identification priority.
func Load(path string) ([]CameraProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "profiles", "read", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates profile declarations.
func Parse(data []byte) ([]CameraProfile, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "profiles", "parse", "invalid yaml", err)
	}
	if len(doc.Cameras) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "profiles", "parse", "no cameras declared", nil)
	}

	seen := make(map[string]struct{}, len(doc.Cameras))
	for i := range doc.Cameras {
		profile := &doc.Cameras[i]
		if err := validateProfile(profile); err != nil {
			return nil, err
		}
		key := strings.ToLower(profile.Name)
		if _, dup := seen[key]; dup {
			return nil, services.Wrap(services.ErrConfiguration, "profiles", "parse",
				fmt.Sprintf("duplicate camera name %q", profile.Name), nil)
		}
		seen[key] = struct{}{}
	}
	return doc.Cameras, nil
}

func validateProfile(p *CameraProfile) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return services.Wrap(services.ErrConfiguration, "profiles", "validate", "camera missing name", nil)
	}
	p.Name = name

	if len(p.SourceTrees()) == 0 {
		return services.Wrap(services.ErrConfiguration, "profiles", "validate",
			fmt.Sprintf("camera %q declares no file sources", name), nil)
	}
	for _, tree := range p.SourceTrees() {
		if strings.TrimSpace(tree.Path) == "" {
			return services.Wrap(services.ErrConfiguration, "profiles", "validate",
				fmt.Sprintf("camera %q has a source tree without a path", name), nil)
		}
		if len(tree.Extensions) == 0 {
			return services.Wrap(services.ErrConfiguration, "profiles", "validate",
				fmt.Sprintf("camera %q source %q has no extensions", name, tree.Path), nil)
		}
	}

	if template := strings.TrimSpace(p.DestinationStructure); template != "" && !strings.Contains(template, DateToken) {
		return services.Wrap(services.ErrConfiguration, "profiles", "validate",
			fmt.Sprintf("camera %q destination_structure must contain %s", name, DateToken), nil)
	}
	return nil
}
