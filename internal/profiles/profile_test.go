package profiles_test

import (
	"os"
	"path/filepath"
	"testing"

	"cardoff/internal/profiles"
)

const sampleYAML = `
cameras:
  - name: "Sony A7C"
    detection_rules:
      folder_structure:
        - path: "DCIM"
          required: true
        - path: "PRIVATE/M4ROOT"
          required: false
      file_patterns:
        - pattern: "ILCE-7C"
          confidence: 90
    file_sources:
      photos:
        - path: "DCIM"
          extensions: [".arw", ".jpg"]
      videos:
        - path: "PRIVATE/M4ROOT/CLIP"
          extensions: [".mp4"]
    destination_structure: "Sony A7C/{date}"
  - name: "DJI Mini"
    detection_rules:
      folder_structure:
        - path: "DCIM/100MEDIA"
          required: true
    file_sources:
      videos:
        - path: "DCIM/100MEDIA"
          extensions: ["mp4", "lrf"]
`

func TestParsePreservesOrder(t *testing.T) {
	cams, err := profiles.Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cams) != 2 {
		t.Fatalf("expected 2 cameras, got %d", len(cams))
	}
	if cams[0].Name != "Sony A7C" || cams[1].Name != "DJI Mini" {
		t.Fatalf("declaration order not preserved: %q, %q", cams[0].Name, cams[1].Name)
	}
}

func TestSourceTreesTagKinds(t *testing.T) {
	cams, err := profiles.Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	trees := cams[0].SourceTrees()
	if len(trees) != 2 {
		t.Fatalf("expected 2 trees, got %d", len(trees))
	}
	if trees[0].Kind != profiles.MediaPhotos || trees[0].Path != "DCIM" {
		t.Fatalf("unexpected first tree: %+v", trees[0])
	}
	if trees[1].Kind != profiles.MediaVideos {
		t.Fatalf("unexpected second tree kind: %v", trees[1].Kind)
	}
}

func TestAllowsIsCaseInsensitive(t *testing.T) {
	tree := profiles.SourceTree{Extensions: []string{".ARW", "jpg"}}
	for _, name := range []string{"DSC0001.arw", "DSC0001.ARW", "pic.JPG"} {
		if !tree.Allows(name) {
			t.Fatalf("expected %q to be allowed", name)
		}
	}
	for _, name := range []string{"clip.mp4", "notes.txt", "noext"} {
		if tree.Allows(name) {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestDestinationDir(t *testing.T) {
	cams, err := profiles.Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := cams[0].DestinationDir("/photos", "20260831")
	want := filepath.Join("/photos", "Sony A7C", "20260831")
	if got != want {
		t.Fatalf("DestinationDir = %q, want %q", got, want)
	}

	// Empty template falls back to <name>/{date}.
	got = cams[1].DestinationDir("/photos", "20260831")
	want = filepath.Join("/photos", "DJI Mini", "20260831")
	if got != want {
		t.Fatalf("fallback DestinationDir = %q, want %q", got, want)
	}
}

func TestParseRejectsInvalidDeclarations(t *testing.T) {
	cases := map[string]string{
		"empty":          `cameras: []`,
		"missing name":   "cameras:\n  - file_sources:\n      photos:\n        - path: DCIM\n          extensions: [jpg]\n",
		"no sources":     "cameras:\n  - name: X\n",
		"no extensions":  "cameras:\n  - name: X\n    file_sources:\n      photos:\n        - path: DCIM\n          extensions: []\n",
		"bad template":   "cameras:\n  - name: X\n    destination_structure: \"X/static\"\n    file_sources:\n      photos:\n        - path: DCIM\n          extensions: [jpg]\n",
		"duplicate name": "cameras:\n  - name: X\n    file_sources:\n      photos:\n        - path: DCIM\n          extensions: [jpg]\n  - name: x\n    file_sources:\n      photos:\n        - path: DCIM\n          extensions: [jpg]\n",
	}
	for label, body := range cases {
		if _, err := profiles.Parse([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", label)
		}
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cameras.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cams, err := profiles.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cams) != 2 {
		t.Fatalf("expected 2 cameras, got %d", len(cams))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := profiles.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
